package models

import (
	"log/slog"

	"github.com/myrjola/tripguide/internal/errors"
)

// FlowType selects one of the top-level questionnaire paths.
type FlowType string

const (
	// FlowOpenEnded is the "inspire me" path for travellers without a destination.
	FlowOpenEnded FlowType = "inspire-me"
	// FlowDestinationKnown is the "planning" path for travellers who know where they are going.
	FlowDestinationKnown FlowType = "planning"
)

var ErrUnknownFlowType = errors.NewSentinel("unknown flow type")

// ParseFlowType validates s against the known flow types.
func ParseFlowType(s string) (FlowType, error) {
	switch ft := FlowType(s); ft {
	case FlowOpenEnded, FlowDestinationKnown:
		return ft, nil
	default:
		return "", errors.Wrap(ErrUnknownFlowType, "parse flow type", slog.String("flow_type", s))
	}
}

func (f FlowType) String() string {
	return string(f)
}
