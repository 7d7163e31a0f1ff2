package llm

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Flags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs, "llm")

	require.NoError(t, fs.Parse([]string{
		"--llm.chat-model=mistral",
		"--llm.embed-model=mxbai-embed-large",
		"--llm.breaker.max-failures=0",
	}))
	assert.Equal(t, "mistral", o.ChatModel)
	assert.Equal(t, "mxbai-embed-large", o.EmbedModel)
	assert.Equal(t, 0, o.Breaker.MaxFailures)
	assert.Empty(t, o.Validate())

	m := o.ToConfigMap()
	assert.Equal(t, "mistral", m["chat_model"])
	assert.Equal(t, 120*time.Second, m["timeout"])
}

func TestOptions_Validate(t *testing.T) {
	o := NewOptions()
	o.Provider = "gemini"
	o.ChatModel = ""
	o.Timeout = 0

	assert.Len(t, o.Validate(), 3)
}
