package openai

import (
	"errors"
	"testing"

	"github.com/scranton-labs/auditdex/internal/domain"
)

func TestDecodeClassification(t *testing.T) {
	cls, err := decodeClassification(`{"query_type":"fraud","entities":["Ryan","$500"]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cls.QueryType != domain.QueryFraud {
		t.Errorf("query type = %q, want fraud", cls.QueryType)
	}
	if len(cls.Entities) != 2 || cls.Entities[0] != "Ryan" {
		t.Errorf("entities = %v", cls.Entities)
	}
}

func TestDecodeClassification_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":         `classify as fraud`,
		"unknown type":     `{"query_type":"espionage","entities":[]}`,
		"unknown field":    `{"query_type":"policy","confidence":0.9}`,
		"trailing data":    `{"query_type":"policy","entities":[]} extra`,
		"wrapped in prose": "Sure! Here is the JSON: {\"query_type\":\"policy\",\"entities\":[]}",
	}
	for name, raw := range cases {
		if _, err := decodeClassification(raw); !errors.Is(err, domain.ErrClassificationFailed) {
			t.Errorf("%s: err = %v, want ErrClassificationFailed", name, err)
		}
	}
}
