package biz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kart-io/medrag/pkg/errors"
	"github.com/kart-io/medrag/pkg/utils/json"
)

// Topic 是主题映射中的一项。
type Topic struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// TopicMap 主题名称与 ID 的双向映射，创建后只读。
type TopicMap struct {
	byName map[string]int
	byID   map[int]string
	topics []Topic // 按 ID 升序
	names  []string
	json   string
}

// LoadTopicMap reads a JSON object mapping topic name to integer id.
func LoadTopicMap(path string) (*TopicMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrTopicMapMissing.WithCause(err)
	}
	return ParseTopicMap(data)
}

// ParseTopicMap parses the topic map JSON.
func ParseTopicMap(data []byte) (*TopicMap, error) {
	var raw map[string]json.Number
	if err := json.UnmarshalUseNumber(data, &raw); err != nil {
		return nil, errors.ErrTopicMapInvalid.WithCause(err)
	}

	m := make(map[string]int, len(raw))
	for name, num := range raw {
		id, err := num.Int64()
		if err != nil {
			return nil, errors.ErrTopicMapInvalid.WithMessagef("topic %q has a non-integer id %q", name, num.String())
		}
		m[name] = int(id)
	}
	return NewTopicMap(m)
}

// NewTopicMap builds a TopicMap, rejecting empty names, negative ids and
// duplicate ids.
func NewTopicMap(m map[string]int) (*TopicMap, error) {
	if len(m) == 0 {
		return nil, errors.ErrTopicMapInvalid.WithMessage("topic map is empty")
	}

	t := &TopicMap{
		byName: make(map[string]int, len(m)),
		byID:   make(map[int]string, len(m)),
		topics: make([]Topic, 0, len(m)),
	}
	for name, id := range m {
		if strings.TrimSpace(name) == "" {
			return nil, errors.ErrTopicMapInvalid.WithMessage("topic name must not be empty")
		}
		if id < 0 {
			return nil, errors.ErrTopicMapInvalid.WithMessagef("topic %q has negative id %d", name, id)
		}
		if other, dup := t.byID[id]; dup {
			return nil, errors.ErrTopicMapInvalid.WithMessagef("topics %q and %q share id %d", other, name, id)
		}
		t.byName[name] = id
		t.byID[id] = name
		t.topics = append(t.topics, Topic{Name: name, ID: id})
	}

	sort.Slice(t.topics, func(i, j int) bool { return t.topics[i].ID < t.topics[j].ID })

	t.names = make([]string, 0, len(m))
	for name := range m {
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)

	rendered, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.ErrTopicMapInvalid.WithCause(fmt.Errorf("render topic map: %w", err))
	}
	t.json = string(rendered)
	return t, nil
}

// ID returns the id of a topic name.
func (t *TopicMap) ID(name string) (int, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the name of a topic id.
func (t *TopicMap) Name(id int) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// Names returns the topic names sorted alphabetically.
func (t *TopicMap) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Topics returns all topics ordered by id.
func (t *TopicMap) Topics() []Topic {
	out := make([]Topic, len(t.topics))
	copy(out, t.topics)
	return out
}

// Len returns the number of topics.
func (t *TopicMap) Len() int { return len(t.topics) }

// JSON returns the map rendered as indented JSON, keys sorted.
func (t *TopicMap) JSON() string { return t.json }
