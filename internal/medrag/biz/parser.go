package biz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/utils/json"
)

// Prediction 是对一条医学陈述的判断结果。
type Prediction struct {
	StatementIsTrue bool   `json:"statement_is_true"`
	StatementTopic  string `json:"statement_topic"`
}

const (
	fieldIsTrue = "statement_is_true"
	fieldTopic  = "statement_topic"
)

// ParsePrediction extracts a Prediction from raw model output.
//
// A surrounding Markdown code fence is removed and the outermost JSON object
// is decoded. Both fields are required. statement_is_true accepts 0/1,
// true/false or their string forms. statement_topic accepts a topic id,
// a numeric string or an exact topic name, and must name a known topic.
func ParsePrediction(raw string, topics *TopicMap) (*Prediction, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, errors.ErrPredictionParse.WithCause(err)
	}

	var fields map[string]any
	if err := json.UnmarshalUseNumber([]byte(obj), &fields); err != nil {
		return nil, errors.ErrPredictionParse.WithCause(fmt.Errorf("decode model output: %w", err))
	}

	rawTrue, ok := fields[fieldIsTrue]
	if !ok {
		return nil, errors.ErrPredictionParse.WithCause(fmt.Errorf("missing field %s", fieldIsTrue))
	}
	rawTopic, ok := fields[fieldTopic]
	if !ok {
		return nil, errors.ErrPredictionParse.WithCause(fmt.Errorf("missing field %s", fieldTopic))
	}

	isTrue, err := parseTruth(rawTrue)
	if err != nil {
		return nil, errors.ErrPredictionParse.WithCause(err)
	}
	topic, err := parseTopic(rawTopic, topics)
	if err != nil {
		return nil, errors.ErrPredictionParse.WithCause(err)
	}

	return &Prediction{StatementIsTrue: isTrue, StatementTopic: topic}, nil
}

// extractObject strips a code fence and returns the text between the first
// '{' and the last '}'.
func extractObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "```")
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return s[start : end+1], nil
}

func parseTruth(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case json.Number:
		return truthFromString(t.String())
	case string:
		return truthFromString(strings.TrimSpace(t))
	default:
		return false, fmt.Errorf("%s has unsupported type %T", fieldIsTrue, v)
	}
}

func truthFromString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be 0/1 or true/false, got %q", fieldIsTrue, s)
	}
}

func parseTopic(v any, topics *TopicMap) (string, error) {
	switch t := v.(type) {
	case json.Number:
		return topicFromID(t.String(), topics)
	case string:
		s := strings.TrimSpace(t)
		if _, ok := topics.ID(s); ok {
			return s, nil
		}
		return topicFromID(s, topics)
	default:
		return "", fmt.Errorf("%s has unsupported type %T", fieldTopic, v)
	}
}

func topicFromID(s string, topics *TopicMap) (string, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return "", fmt.Errorf("%s %q is neither a topic id nor a topic name", fieldTopic, s)
	}
	name, ok := topics.Name(id)
	if !ok {
		return "", fmt.Errorf("%s %d is not a known topic id", fieldTopic, id)
	}
	return name, nil
}
