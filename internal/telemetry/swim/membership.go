// Package swim provides peer discovery for the telemetry relay tier via
// hashicorp/memberlist's SWIM protocol: each relay replica joins the same
// cluster and advertises the base URL of its REST facade, so the
// dissemination layer can discover fanout targets without a separate
// directory service.
package swim

import (
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/memberlist"
)

// events implements memberlist.EventDelegate purely for logging.
type events struct {
	nodeID string
}

func (e *events) NotifyJoin(n *memberlist.Node) {
	if n.Name != e.nodeID {
		log.Printf("[swim] node %s (%s) joined the cluster", n.Name, n.Address())
	}
}

func (e *events) NotifyLeave(n *memberlist.Node) {
	log.Printf("[swim] node %s left the cluster", n.Name)
}

func (e *events) NotifyUpdate(n *memberlist.Node) {
	log.Printf("[swim] node %s metadata updated", n.Name)
}

// Config configures a Manager.
type Config struct {
	NodeID   string
	BindAddr string
	BindPort int
	APIPort  int // the relay's REST port, advertised to peers via PeerURLs
	Seeds    []string
}

// Manager wraps memberlist.Memberlist with the narrow interface the
// telemetry gossip layer needs (internal/telemetry/gossip.PeerSource).
type Manager struct {
	ml      *memberlist.Memberlist
	nodeID  string
	apiPort int
}

// NewManager creates a memberlist instance bound to cfg and attempts to
// join any configured seeds.
func NewManager(cfg Config) (*Manager, error) {
	mlCfg := memberlist.DefaultLANConfig()
	mlCfg.Name = cfg.NodeID
	mlCfg.BindAddr = cfg.BindAddr
	mlCfg.BindPort = cfg.BindPort
	mlCfg.Events = &events{nodeID: cfg.NodeID}
	mlCfg.PushPullInterval = 30 * time.Second
	mlCfg.ProbeTimeout = 1 * time.Second
	mlCfg.ProbeInterval = 5 * time.Second

	ml, err := memberlist.Create(mlCfg)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}

	m := &Manager{ml: ml, nodeID: cfg.NodeID, apiPort: cfg.APIPort}

	if len(cfg.Seeds) > 0 {
		validSeeds := make([]string, 0, len(cfg.Seeds))
		for _, seed := range cfg.Seeds {
			if seed != cfg.NodeID {
				validSeeds = append(validSeeds, seed)
			}
		}
		if len(validSeeds) > 0 {
			if joined, err := ml.Join(validSeeds); err != nil {
				log.Printf("[swim] warning: failed to join seeds %v: %v", validSeeds, err)
			} else {
				log.Printf("[swim] joined %d seed nodes", joined)
			}
		}
	}

	return m, nil
}

// LiveMembers returns every known member excluding this node.
func (m *Manager) LiveMembers() []*memberlist.Node {
	all := m.ml.Members()
	live := make([]*memberlist.Node, 0, len(all))
	for _, member := range all {
		if member.Name != m.nodeID {
			live = append(live, member)
		}
	}
	return live
}

// PeerURLs implements gossip.PeerSource: the REST base URL of every
// live peer, assuming each advertises its facade on apiPort.
func (m *Manager) PeerURLs() []string {
	members := m.LiveMembers()
	urls := make([]string, 0, len(members))
	for _, member := range members {
		urls = append(urls, fmt.Sprintf("http://%s:%d", member.Addr.String(), m.apiPort))
	}
	return urls
}

// Count implements gossip.PeerSource: total members including self.
func (m *Manager) Count() int {
	return m.ml.NumMembers()
}

// Join attempts to add a single peer by address.
func (m *Manager) Join(addr string) error {
	joined, err := m.ml.Join([]string{addr})
	if err != nil {
		return fmt.Errorf("join %s: %w", addr, err)
	}
	log.Printf("[swim] joined %d nodes via %s", joined, addr)
	return nil
}

// Leave gracefully leaves the cluster.
func (m *Manager) Leave() error {
	if err := m.ml.Leave(5 * time.Second); err != nil {
		return fmt.Errorf("leave cluster: %w", err)
	}
	return nil
}

// Shutdown tears the memberlist instance down completely.
func (m *Manager) Shutdown() error {
	if err := m.ml.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	return nil
}
