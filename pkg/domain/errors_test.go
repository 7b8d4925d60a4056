package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/csdlc/pkg/domain"
)

func TestErrors(t *testing.T) {
	t.Run("Typed errors unwrap to sentinels", func(t *testing.T) {
		cause := errors.New("unexpected EOF")
		cases := []struct {
			err  error
			want error
		}{
			{&domain.CircularDependencyError{Cycles: [][]string{{"a", "b", "a"}}}, domain.ErrCircularDependency},
			{&domain.MaxDepthExceededError{Path: "x.xml", Depth: 11, Max: 10}, domain.ErrMaxDepthExceeded},
			{&domain.ParseError{Source: "x.xml", Err: cause}, domain.ErrParsing},
			{&domain.ParseError{Source: "x.xml", Err: cause}, cause},
			{&domain.DuplicateElementError{Kind: "EntityType", Name: "P", Namespace: "N"}, domain.ErrDuplicateElement},
		}
		for _, c := range cases {
			wrapped := fmt.Errorf("outer: %w", c.err)
			assert.ErrorIs(t, wrapped, c.want, c.err.Error())
		}
	})

	t.Run("Cycle message lists every cycle", func(t *testing.T) {
		err := &domain.CircularDependencyError{Cycles: [][]string{{"a", "b", "a"}, {"c", "c"}}}
		assert.Equal(t, "circular dependencies detected and not allowed. Cycles: [a -> b -> a], [c -> c]", err.Error())
	})

	t.Run("Aggregate", func(t *testing.T) {
		one := errors.New("one")
		agg := &domain.AggregateError{Errors: []error{one, domain.ErrCacheMiss}}
		assert.ErrorIs(t, agg, domain.ErrCacheMiss)
		assert.Len(t, domain.Errors(fmt.Errorf("wrap: %w", agg)), 2)
		assert.Nil(t, domain.Errors(one))
		assert.Equal(t, "one", (&domain.AggregateError{Errors: []error{one}}).Error())
	})
}

func TestIssue(t *testing.T) {
	assert.Equal(t, domain.SeverityError, domain.ParseSeverity("error"))
	assert.Equal(t, domain.SeverityWarning, domain.ParseSeverity("warning"))
	assert.Equal(t, domain.SeverityInfo, domain.ParseSeverity("ERROR"))

	i := domain.Issue{Kind: domain.KindDuplicateElement, Severity: domain.SeverityError, Message: "dup", File: "a.xml"}
	assert.True(t, i.IsError())
	assert.Equal(t, "error [DuplicateElement] a.xml: dup", i.String())
	i.File = ""
	assert.Equal(t, "error [DuplicateElement] dup", i.String())
}
