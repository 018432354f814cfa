// Package filter implements predicate-based message filtering: a rule
// based filter with three policies, and a chain that aggregates several
// filters into one.
package filter

import "github.com/isml-go/isml/message"

// MessageFilter decides whether a message satisfies some criterion, used
// by a session or pub/sub subscriber to accept or reject inbound/outbound
// traffic.
type MessageFilter interface {
	Matches(msg *message.Message) bool
}

// Policy selects how a RuleBasedFilter's permit/forbid rule sets combine.
type Policy int

const (
	// ExactMatchingToAccessList accepts a message only if it satisfies at
	// least one permit rule and no forbid rule.
	ExactMatchingToAccessList Policy = iota
	// PermitAllExceptForbidden accepts every message except those
	// satisfying a forbid rule.
	PermitAllExceptForbidden
	// ForbidAllExceptPermitted accepts only messages satisfying a permit
	// rule.
	ForbidAllExceptPermitted
)

// Rule is a single predicate over a message.
type Rule func(msg *message.Message) bool

// RuleBasedFilter combines permit and forbid rule sets under a Policy.
// An unrecognized Policy value (one outside the three declared
// constants) matches nothing, so Matches is total.
type RuleBasedFilter struct {
	policy    Policy
	permitted []Rule
	forbidden []Rule
}

// NewRuleBasedFilter constructs an empty filter under the given policy.
func NewRuleBasedFilter(policy Policy) *RuleBasedFilter {
	return &RuleBasedFilter{policy: policy}
}

// Permit adds a rule to the permitted set.
func (f *RuleBasedFilter) Permit(rule Rule) {
	f.permitted = append(f.permitted, rule)
}

// Forbid adds a rule to the forbidden set.
func (f *RuleBasedFilter) Forbid(rule Rule) {
	f.forbidden = append(f.forbidden, rule)
}

// Matches implements MessageFilter.
func (f *RuleBasedFilter) Matches(msg *message.Message) bool {
	switch f.policy {
	case PermitAllExceptForbidden:
		return !satisfiesAny(msg, f.forbidden)
	case ForbidAllExceptPermitted:
		return satisfiesAny(msg, f.permitted)
	case ExactMatchingToAccessList:
		return satisfiesAny(msg, f.permitted) && !satisfiesAny(msg, f.forbidden)
	default:
		return false
	}
}

func satisfiesAny(msg *message.Message, rules []Rule) bool {
	for _, rule := range rules {
		if rule(msg) {
			return true
		}
	}
	return false
}

// Chain aggregates several filters into one: a message matches the chain
// only if it matches every filter in it.
type Chain struct {
	filters []MessageFilter
}

// NewChain returns an empty Chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends filter to the chain and returns the chain, for fluent
// construction.
func (c *Chain) Add(filter MessageFilter) *Chain {
	c.filters = append(c.filters, filter)
	return c
}

// Matches implements MessageFilter: a message matches the chain iff it
// matches every filter added to it. An empty chain matches everything.
func (c *Chain) Matches(msg *message.Message) bool {
	for _, filter := range c.filters {
		if !filter.Matches(msg) {
			return false
		}
	}
	return true
}
