package domain

// QueryType is the routing category a query is classified into.
type QueryType string

const (
	QueryPolicy      QueryType = "policy"
	QueryEmail       QueryType = "email"
	QueryTransaction QueryType = "transaction"
	QueryFraud       QueryType = "fraud"
	QueryGeneral     QueryType = "general"
)

// Valid reports whether t is one of the known query types.
func (t QueryType) Valid() bool {
	switch t {
	case QueryPolicy, QueryEmail, QueryTransaction, QueryFraud, QueryGeneral:
		return true
	}
	return false
}

// Classification is the classifier collaborator's output.
type Classification struct {
	QueryType QueryType `json:"query_type"`
	Entities  []string  `json:"entities"`
}
