package rules

import (
	"sort"

	"github.com/gandalf-the-gray/qnetsim"
	"github.com/gandalf-the-gray/qnetsim/memory"
)

// Reclaimer resets a memory to RAW, used when a rule expires (spec §4.4,
// §4.7.2).
type Reclaimer interface {
	Update(protocol string, index int, newState memory.State, opts ...memory.UpdateOption) (memory.Info, error)
}

// Manager evaluates condition/action rules against memory state changes and
// tracks which sub-protocols currently hold which memories (spec §4.4). It
// implements memory.Observer.
type Manager struct {
	node      string
	memories  MemoryReader
	reclaimer Reclaimer
	dispatch  map[Kind]Dispatch
	logger    qnetsim.Logger

	rules     []*Rule
	nextOrder int
	attached  map[int]Protocol
}

// NewManager creates a rule manager for a node backed by its memory manager
// and the condition/action implementations for each Kind.
func NewManager(node string, memories MemoryReader, reclaimer Reclaimer, dispatch map[Kind]Dispatch, logger qnetsim.Logger) *Manager {
	if logger == nil {
		logger = qnetsim.NopLogger{}
	}
	return &Manager{
		node:      node,
		memories:  memories,
		reclaimer: reclaimer,
		dispatch:  dispatch,
		logger:    logger,
		attached:  make(map[int]Protocol),
	}
}

// Load installs a rule so it participates in evaluation (spec §4.4). Rules
// become active immediately; the reservation protocol is responsible for
// scheduling the Load call itself at the reservation's start_time (spec
// §4.7.2).
func (m *Manager) Load(rule *Rule) {
	rule.loadOrder = m.nextOrder
	m.nextOrder++
	if rule.active == nil {
		rule.active = make(map[int]Protocol)
	}
	m.rules = append(m.rules, rule)
	m.logger.Debug("rule loaded", "node", m.node, "kind", rule.Kind.String(), "priority", rule.Priority)
}

// Expire tears down every active protocol of the rule, returns the memories
// it held to RAW, and removes it from the active set (spec §4.4, §4.7.2).
func (m *Manager) Expire(rule *Rule) error {
	idx := -1
	for i, r := range m.rules {
		if r == rule {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrRuleNotLoaded
	}
	// Unload first, so the RAW updates below cannot re-fire this same rule.
	m.rules = append(m.rules[:idx], m.rules[idx+1:]...)

	stopped := make(map[Protocol]bool, len(rule.active))
	for memIdx, proto := range rule.active {
		if m.attached[memIdx] == proto {
			delete(m.attached, memIdx)
		}
		if !stopped[proto] {
			// A sub-protocol mid-flight when its rule expires may still have
			// a reply in transit; Stop lets it ignore that reply instead of
			// mutating a memory that has since been reused.
			if s, ok := proto.(interface{ Stop() }); ok {
				s.Stop()
			}
			stopped[proto] = true
		}
		if _, err := m.reclaimer.Update("rules.Expire", memIdx, memory.RAW); err != nil {
			return err
		}
	}
	rule.active = make(map[int]Protocol)

	m.logger.Debug("rule expired", "node", m.node, "kind", rule.Kind.String())
	return nil
}

// OnMemoryUpdate implements memory.Observer: it walks loaded rules in
// descending priority order (ties broken by load order) and invokes the
// first whose condition matches and whose selected memories are all
// currently unattached (spec §4.4).
func (m *Manager) OnMemoryUpdate(changed memory.Info) {
	candidates := make([]*Rule, len(m.rules))
	copy(candidates, m.rules)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].loadOrder < candidates[j].loadOrder
	})

	for _, rule := range candidates {
		d, ok := m.dispatch[rule.Kind]
		if !ok {
			continue
		}
		selectedIdx := d.Condition(rule.Params, changed, m.memories)
		if len(selectedIdx) == 0 {
			continue
		}
		if m.anyAttached(selectedIdx) {
			continue
		}

		selected := make([]memory.Info, 0, len(selectedIdx))
		for _, idx := range selectedIdx {
			info, err := m.memories.Get(idx)
			if err != nil {
				continue
			}
			selected = append(selected, info)
		}

		proto, destinations := d.Action(rule.Params, selected)
		if proto == nil {
			continue
		}

		for _, idx := range selectedIdx {
			m.attached[idx] = proto
			rule.active[idx] = proto
		}
		m.logger.Info("rule fired", "node", m.node, "kind", rule.Kind.String(),
			"protocol", proto.Name(), "destinations", destinations)
		return
	}
}

func (m *Manager) anyAttached(indices []int) bool {
	for _, idx := range indices {
		if _, ok := m.attached[idx]; ok {
			return true
		}
	}
	return false
}

// Detach releases a completed (or failed) protocol's hold on its memories
// so future rule evaluations can claim them again. Sub-protocols call this
// when they finish, regardless of outcome (spec §4.5: "Completion is
// signalled by updating memory state and detaching the protocol").
func (m *Manager) Detach(proto Protocol) {
	for idx, p := range m.attached {
		if p == proto {
			delete(m.attached, idx)
		}
	}
	for _, rule := range m.rules {
		for idx, p := range rule.active {
			if p == proto {
				delete(rule.active, idx)
			}
		}
	}
}

// Rules returns the currently loaded rules (for tests and introspection).
func (m *Manager) Rules() []*Rule {
	out := make([]*Rule, len(m.rules))
	copy(out, m.rules)
	return out
}
