package state

import (
	"reflect"
	"testing"

	"github.com/scranton-labs/auditdex/internal/domain"
)

func TestApply_ListFieldsAppendOnly(t *testing.T) {
	s := New("who spent what")

	s = Apply(s, Update{
		PolicyContext: []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "policy_0_0"}}},
		NodesVisited:  []string{"policy_retrieval"},
	})
	s = Apply(s, Update{
		PolicyContext: []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "policy_1_0"}}},
		EmailResults:  []domain.Email{{From: "michael", SourceLine: 12}},
		NodesVisited:  []string{"email_retrieval"},
	})

	if got := len(s.PolicyContext); got != 2 {
		t.Fatalf("expected 2 policy chunks, got %d", got)
	}
	if s.PolicyContext[0].ID != "policy_0_0" || s.PolicyContext[1].ID != "policy_1_0" {
		t.Errorf("append order not preserved: %v", s.PolicyContext)
	}
	want := []string{"policy_retrieval", "email_retrieval"}
	if !reflect.DeepEqual(s.NodesVisited, want) {
		t.Errorf("nodes visited = %v, want %v", s.NodesVisited, want)
	}
}

func TestApply_ScalarsLastWriteWins(t *testing.T) {
	s := New("q")

	s = Apply(s, Update{QueryType: domain.QueryEmail, Err: "first"})
	s = Apply(s, Update{Err: "second"})

	if s.QueryType != domain.QueryEmail {
		t.Errorf("query type = %q, want %q", s.QueryType, domain.QueryEmail)
	}
	if s.Err != "second" {
		t.Errorf("error = %q, want last write", s.Err)
	}
}

func TestApply_EmptyUpdateIsIdentity(t *testing.T) {
	s := New("q")
	s = Apply(s, Update{
		QueryType:    domain.QueryFraud,
		FraudAlerts:  []domain.FraudAlert{{Kind: "smurfing"}},
		NodesVisited: []string{"fraud_correlation"},
	})

	before := s
	after := Apply(s, Update{})

	if !reflect.DeepEqual(before, after) {
		t.Errorf("empty update changed state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestApply_EntitiesReplacedOnlyWhenSet(t *testing.T) {
	s := New("q")
	s = Apply(s, Update{Entities: []string{"Ryan"}, SetEntities: true})
	s = Apply(s, Update{}) // no entity write

	if len(s.Entities) != 1 || s.Entities[0] != "Ryan" {
		t.Fatalf("entities = %v, want [Ryan]", s.Entities)
	}

	// An empty-but-set entity list is a real classifier result.
	s = Apply(s, Update{Entities: nil, SetEntities: true})
	if len(s.Entities) != 0 {
		t.Errorf("entities = %v, want empty after explicit set", s.Entities)
	}
}
