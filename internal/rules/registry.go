package rules

import (
	"fmt"
	"sort"

	"SignalFlow/internal/domain/models"
)

// Registry is the immutable, indexed rule set. Built once at startup; lookups
// afterwards are read-only and safe for concurrent use.
type Registry struct {
	byName     map[string]models.Rule
	byTable    map[string][]models.Rule
	byCategory map[string][]models.Rule
	tables     []string
}

// NewRegistry validates every rule and builds the indexes. A duplicate rule
// name or an invalid condition fails the whole load.
func NewRegistry(rules []models.Rule) (*Registry, error) {
	r := &Registry{
		byName:     make(map[string]models.Rule, len(rules)),
		byTable:    make(map[string][]models.Rule),
		byCategory: make(map[string][]models.Rule),
	}
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		if _, dup := r.byName[rule.Name]; dup {
			return nil, fmt.Errorf("load rules: duplicate rule name %q", rule.Name)
		}
		r.byName[rule.Name] = rule
		r.byTable[rule.SourceTable] = append(r.byTable[rule.SourceTable], rule)
		r.byCategory[rule.Category] = append(r.byCategory[rule.Category], rule)
	}
	r.tables = make([]string, 0, len(r.byTable))
	for t := range r.byTable {
		r.tables = append(r.tables, t)
	}
	sort.Strings(r.tables)
	return r, nil
}

// Load builds the registry from the built-in catalog plus any extra rules.
func Load(extra ...models.Rule) (*Registry, error) {
	all := Catalog()
	all = append(all, extra...)
	return NewRegistry(all)
}

// Catalog returns the built-in rule set.
func Catalog() []models.Rule {
	var all []models.Rule
	all = append(all, momentumRules()...)
	all = append(all, macdRules()...)
	all = append(all, futuresRules()...)
	all = append(all, volumeRules()...)
	all = append(all, structureRules()...)
	all = append(all, levelRules()...)
	return all
}

// RulesFor returns the rules bound to one source table. The returned slice is
// shared; callers must not mutate it.
func (r *Registry) RulesFor(table string) []models.Rule {
	return r.byTable[table]
}

// ByCategory returns the rules in one category.
func (r *Registry) ByCategory(category string) []models.Rule {
	return r.byCategory[category]
}

// Get looks a rule up by name.
func (r *Registry) Get(name string) (models.Rule, bool) {
	rule, ok := r.byName[name]
	return rule, ok
}

// Tables returns the sorted list of source tables any rule watches.
func (r *Registry) Tables() []string {
	return r.tables
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.byName)
}
