package pipeline

import "github.com/scranton-labs/auditdex/internal/domain"

// Stage names, also used as node-visit trace entries.
const (
	StageRouter               = "router"
	StagePolicyRetrieval      = "policy_retrieval"
	StageEmailRetrieval       = "email_retrieval"
	StageTransactionRetrieval = "transaction_retrieval"
	StageFraudCorrelation     = "fraud_correlation"
	StageSynthesis            = "synthesis"

	// stageEnd terminates the traversal.
	stageEnd = ""
)

// nextStage is the transition function of the orchestration graph,
// keyed only by the current stage and the classified query type. Every
// path runs policy retrieval first and terminates in synthesis within
// five transitions; no stage is ever revisited for one query.
func nextStage(current string, queryType domain.QueryType) string {
	switch current {
	case StageRouter:
		return StagePolicyRetrieval

	case StagePolicyRetrieval:
		switch queryType {
		case domain.QueryEmail, domain.QueryFraud:
			return StageEmailRetrieval
		case domain.QueryTransaction:
			return StageTransactionRetrieval
		default:
			return StageSynthesis
		}

	case StageEmailRetrieval:
		if queryType == domain.QueryFraud {
			return StageTransactionRetrieval
		}
		return StageSynthesis

	case StageTransactionRetrieval:
		if queryType == domain.QueryFraud {
			return StageFraudCorrelation
		}
		return StageSynthesis

	case StageFraudCorrelation:
		return StageSynthesis

	default:
		return stageEnd
	}
}
