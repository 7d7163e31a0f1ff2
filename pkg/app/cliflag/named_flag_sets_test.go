package cliflag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedFlagSetsOrder(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("rag").Int("rag.top-k", 5, "")
	fss.FlagSet("llm").String("llm.base-url", "", "")
	fss.FlagSet("rag").Bool("rag.parse-retry", true, "")

	assert.Equal(t, []string{"rag", "llm"}, fss.Order)
	assert.NotNil(t, fss.FlagSets["rag"].Lookup("rag.parse-retry"))

	var buf bytes.Buffer
	PrintSections(&buf, fss, 0)
	assert.Contains(t, buf.String(), "Rag flags:")
	assert.Contains(t, buf.String(), "--llm.base-url")
}
