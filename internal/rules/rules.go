package rules

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/emailzen/emailzen/internal/storage"
)

// Conditions are header-level match conditions. A message matches when
// any sender entry matches AND any subject keyword matches; an absent
// condition passes unconditionally.
type Conditions struct {
	Senders  []string `json:"remetente,omitempty"`
	Subjects []string `json:"assunto,omitempty"`
}

// Actions are the mutations applied to a matching message.
// RetentionDays > 0 additionally enrolls the rule's label in the daily
// retention sweep.
type Actions struct {
	Label         string `json:"label,omitempty"`
	MarkRead      bool   `json:"marcarLido,omitempty"`
	Archive       bool   `json:"arquivar,omitempty"`
	RetentionDays int    `json:"retencaoDias,omitempty"`
}

// Rule is a user-defined filing rule. JSON tags follow the EmailZen
// extension storage schema.
type Rule struct {
	ID         string     `json:"id"`
	Name       string     `json:"nome"`
	Conditions Conditions `json:"condicoes"`
	Actions    Actions    `json:"acoes"`
	Active     bool       `json:"ativa"`
	CreatedAt  int64      `json:"criadoEm"`
	UpdatedAt  int64      `json:"atualizadoEm"`
}

// UnmarshalJSON treats an omitted ativa as true, so a rule created
// without the flag starts matching immediately.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type plain Rule
	aux := struct {
		Active *bool `json:"ativa"`
		*plain
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Active = aux.Active == nil || *aux.Active
	return nil
}

// Sweepable reports whether the rule participates in retention sweeps.
func (r Rule) Sweepable() bool {
	return r.Active && r.Actions.RetentionDays > 0 && r.Actions.Label != ""
}

// Store persists the rule list. List order is creation order, which the
// engine relies on for first-match-wins processing.
type Store struct {
	kv storage.Store
}

// NewStore returns a rule store over the given key-value store.
func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// List returns all rules in creation order.
func (s *Store) List() ([]Rule, error) {
	var rules []Rule
	if _, err := s.kv.Get(storage.KeyRules, &rules); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules, nil
}

// ListActive returns only active rules, preserving order.
func (s *Store) ListActive() ([]Rule, error) {
	rules, err := s.List()
	if err != nil {
		return nil, err
	}
	active := rules[:0]
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}

// Get returns the rule with the given id.
func (s *Store) Get(id string) (Rule, bool, error) {
	rules, err := s.List()
	if err != nil {
		return Rule{}, false, err
	}
	for _, r := range rules {
		if r.ID == id {
			return r, true, nil
		}
	}
	return Rule{}, false, nil
}

// Save creates the rule when it has no id, or updates it in place.
// Returns the saved rule.
func (s *Store) Save(rule Rule) (Rule, error) {
	rules, err := s.List()
	if err != nil {
		return Rule{}, err
	}

	now := time.Now()
	if rule.ID == "" {
		rule.ID = newRuleID(now)
		rule.CreatedAt = now.UnixMilli()
		rule.UpdatedAt = rule.CreatedAt
		rules = append(rules, rule)
	} else {
		found := false
		for i := range rules {
			if rules[i].ID == rule.ID {
				rule.CreatedAt = rules[i].CreatedAt
				rule.UpdatedAt = now.UnixMilli()
				rules[i] = rule
				found = true
				break
			}
		}
		if !found {
			return Rule{}, fmt.Errorf("unknown rule %s", rule.ID)
		}
	}

	if err := s.kv.Set(storage.KeyRules, rules); err != nil {
		return Rule{}, fmt.Errorf("failed to save rules: %w", err)
	}
	return rule, nil
}

// Delete removes the rule with the given id. Deleting an unknown id is
// a no-op.
func (s *Store) Delete(id string) error {
	rules, err := s.List()
	if err != nil {
		return err
	}
	kept := rules[:0]
	for _, r := range rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if err := s.kv.Set(storage.KeyRules, kept); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}
	return nil
}

// Toggle sets the active flag of the rule with the given id.
func (s *Store) Toggle(id string, active bool) error {
	rules, err := s.List()
	if err != nil {
		return err
	}
	for i := range rules {
		if rules[i].ID == id {
			rules[i].Active = active
			rules[i].UpdatedAt = time.Now().UnixMilli()
			if err := s.kv.Set(storage.KeyRules, rules); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("unknown rule %s", id)
}

func newRuleID(now time.Time) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return fmt.Sprintf("regra_%d_%s", now.UnixMilli(), suffix)
}
