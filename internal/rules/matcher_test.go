package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func activeRule(cond Conditions) Rule {
	return Rule{ID: "r1", Name: "test", Conditions: cond, Active: true}
}

func TestMatchesInactiveRuleNeverMatches(t *testing.T) {
	rule := activeRule(Conditions{Senders: []string{"@example.com"}})
	rule.Active = false

	msg := MessageHeaders{From: "a@example.com", Subject: "anything"}
	assert.False(t, Matches(msg, rule))
}

func TestMatchesDomainEntry(t *testing.T) {
	rule := activeRule(Conditions{Senders: []string{"@example.com"}})

	assert.True(t, Matches(MessageHeaders{From: "a@mail.example.com"}, rule))
	assert.True(t, Matches(MessageHeaders{From: "a@example.com"}, rule))
	assert.False(t, Matches(MessageHeaders{From: "a@otherexample.com"}, rule))
}

func TestMatchesSubdomainEntryAgainstRootSender(t *testing.T) {
	// Rule written against a subdomain still matches mail from the
	// organizational domain.
	rule := activeRule(Conditions{Senders: []string{"@news.shop.com"}})
	assert.True(t, Matches(MessageHeaders{From: "x@shop.com"}, rule))
}

func TestMatchesPlainSenderEntry(t *testing.T) {
	rule := activeRule(Conditions{Senders: []string{"billing@stripe.com"}})

	assert.True(t, Matches(MessageHeaders{From: "Stripe <billing@stripe.com>"}, rule))
	assert.False(t, Matches(MessageHeaders{From: "Stripe <support@stripe.com>"}, rule))
}

func TestMatchesPlainDomainEntry(t *testing.T) {
	rule := activeRule(Conditions{Senders: []string{"stripe.com"}})

	assert.True(t, Matches(MessageHeaders{From: "Stripe <billing@stripe.com>"}, rule))
	assert.True(t, Matches(MessageHeaders{From: "Stripe <x@mail.stripe.com>"}, rule))
}

func TestMatchesSenderEntriesAreOred(t *testing.T) {
	rule := activeRule(Conditions{Senders: []string{"@a.com", "@b.com"}})

	assert.True(t, Matches(MessageHeaders{From: "x@b.com"}, rule))
	assert.False(t, Matches(MessageHeaders{From: "x@c.com"}, rule))
}

func TestMatchesSubjectKeyword(t *testing.T) {
	rule := activeRule(Conditions{Subjects: []string{"invoice", "receipt"}})

	assert.True(t, Matches(MessageHeaders{Subject: "Your INVOICE for March"}, rule))
	assert.True(t, Matches(MessageHeaders{Subject: "payment receipt attached"}, rule))
	assert.False(t, Matches(MessageHeaders{Subject: "weekly digest"}, rule))
}

func TestMatchesBothConditionsMustPass(t *testing.T) {
	rule := activeRule(Conditions{
		Senders:  []string{"@shop.com"},
		Subjects: []string{"order"},
	})

	assert.True(t, Matches(MessageHeaders{From: "x@shop.com", Subject: "Order confirmed"}, rule))
	assert.False(t, Matches(MessageHeaders{From: "x@shop.com", Subject: "newsletter"}, rule))
	assert.False(t, Matches(MessageHeaders{From: "x@other.com", Subject: "Order confirmed"}, rule))
}

func TestMatchesNoConditionsPasses(t *testing.T) {
	// A rule with no conditions matches everything while active.
	rule := activeRule(Conditions{})
	assert.True(t, Matches(MessageHeaders{From: "anyone@anywhere.com", Subject: "anything"}, rule))
}
