// internal/store/ruleformat.go
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetsight/watchtower/internal/rules"
	"github.com/fleetsight/watchtower/internal/types"
)

/*
 * Rule configuration format.
 *
 * Rules persist with their condition tree and action list as JSON columns.
 * This file is the configuration-loading boundary: JSON documents become the
 * in-memory variant types before any evaluation happens, and every
 * structural problem surfaces here or in rules.Compile - never mid-pass.
 *
 * Condition document:
 *   {"type": "and", "children": [
 *     {"type": "attribute", "property": "amount", "operator": "gt",
 *      "threshold": {"kind": "number", "number": "500"}}]}
 *
 * Numbers are decimal strings so monetary thresholds survive the trip
 * without float rounding. Durations use Go duration syntax ("36h").
 */

type conditionDoc struct {
	Type      string         `json:"type"`
	Property  string         `json:"property,omitempty"`
	Operator  string         `json:"operator,omitempty"`
	Optional  bool           `json:"optional,omitempty"`
	Threshold *thresholdDoc  `json:"threshold,omitempty"`
	Children  []conditionDoc `json:"children,omitempty"`
	Child     *conditionDoc  `json:"child,omitempty"`
}

type thresholdDoc struct {
	Name     string   `json:"name,omitempty"`
	Kind     string   `json:"kind"`
	Number   string   `json:"number,omitempty"`
	Text     string   `json:"text,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Flag     bool     `json:"flag,omitempty"`
	Set      []string `json:"set,omitempty"`
	Region   string   `json:"region,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

type actionDoc struct {
	Type            string `json:"type"`
	AnomalyType     string `json:"anomaly_type,omitempty"`
	ReasonTemplate  string `json:"reason_template,omitempty"`
	TargetProperty  string `json:"target_property,omitempty"`
	NewValue        string `json:"new_value,omitempty"`
	Channel         string `json:"channel,omitempty"`
	Template        string `json:"template,omitempty"`
	Role            string `json:"role,omitempty"`
	ServiceRef      string `json:"service_ref,omitempty"`
	PayloadTemplate string `json:"payload_template,omitempty"`
}

// DecodeCondition parses a condition JSON document into the variant tree.
func DecodeCondition(data []byte) (rules.Condition, error) {
	var doc conditionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("condition document: %w", err)
	}
	return buildCondition(&doc)
}

func buildCondition(doc *conditionDoc) (rules.Condition, error) {
	switch doc.Type {
	case "attribute":
		op, err := rules.ParseOperator(doc.Operator)
		if err != nil {
			return nil, fmt.Errorf("operator %q: %w", doc.Operator, err)
		}
		if doc.Threshold == nil {
			return nil, fmt.Errorf("attribute %q: %w", doc.Property, types.ErrThresholdMismatch)
		}
		th, err := buildThreshold(doc.Threshold)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", doc.Property, err)
		}
		return rules.Attribute{
			Property:  doc.Property,
			Operator:  op,
			Threshold: th,
			Optional:  doc.Optional,
		}, nil
	case "and", "or":
		children := make([]rules.Condition, 0, len(doc.Children))
		for i := range doc.Children {
			child, err := buildCondition(&doc.Children[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if doc.Type == "and" {
			return rules.And{Children: children}, nil
		}
		return rules.Or{Children: children}, nil
	case "not":
		if doc.Child == nil {
			return nil, types.ErrMissingChild
		}
		child, err := buildCondition(doc.Child)
		if err != nil {
			return nil, err
		}
		return rules.Not{Child: child}, nil
	default:
		return nil, fmt.Errorf("condition type %q: %w", doc.Type, types.ErrUnknownOperator)
	}
}

func buildThreshold(doc *thresholdDoc) (rules.Threshold, error) {
	th := rules.Threshold{Name: doc.Name, Unit: doc.Unit}
	switch doc.Kind {
	case "number":
		n, err := decimal.NewFromString(doc.Number)
		if err != nil {
			return th, fmt.Errorf("number %q: %w", doc.Number, types.ErrThresholdMismatch)
		}
		th.Kind = rules.ThresholdNumber
		th.Number = n
	case "text":
		th.Kind = rules.ThresholdText
		th.Text = doc.Text
	case "duration":
		d, err := time.ParseDuration(doc.Duration)
		if err != nil {
			return th, fmt.Errorf("duration %q: %w", doc.Duration, types.ErrThresholdMismatch)
		}
		th.Kind = rules.ThresholdDuration
		th.Duration = d
	case "flag":
		th.Kind = rules.ThresholdFlag
		th.Flag = doc.Flag
	case "set":
		th.Kind = rules.ThresholdSet
		th.Set = doc.Set
	case "region":
		th.Kind = rules.ThresholdRegion
		th.Region = doc.Region
	default:
		return th, fmt.Errorf("threshold kind %q: %w", doc.Kind, types.ErrThresholdMismatch)
	}
	return th, nil
}

// DecodeActions parses an action list JSON document.
func DecodeActions(data []byte) ([]rules.Action, error) {
	var docs []actionDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("action document: %w", err)
	}
	actions := make([]rules.Action, 0, len(docs))
	for _, doc := range docs {
		action, err := buildAction(doc)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func buildAction(doc actionDoc) (rules.Action, error) {
	switch doc.Type {
	case "create_anomaly":
		return rules.CreateAnomaly{
			Type:           types.AnomalyType(doc.AnomalyType),
			ReasonTemplate: doc.ReasonTemplate,
		}, nil
	case "update_status":
		return rules.UpdateStatus{
			TargetProperty: doc.TargetProperty,
			NewValue:       doc.NewValue,
		}, nil
	case "notify":
		return rules.Notify{
			Channel:  doc.Channel,
			Template: doc.Template,
			Role:     doc.Role,
		}, nil
	case "invoke_service":
		return rules.InvokeService{
			ServiceRef:      doc.ServiceRef,
			PayloadTemplate: doc.PayloadTemplate,
		}, nil
	default:
		return nil, fmt.Errorf("action type %q: %w", doc.Type, types.ErrUnknownOperator)
	}
}
