package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFieldsDoNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithOutput("docqa", &buf)

	base.WithField("document_id", "7").Info("child")
	base.Info("parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var child, parent map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &child))
	require.NoError(t, json.Unmarshal(lines[1], &parent))

	assert.Equal(t, "7", child["document_id"])
	assert.NotContains(t, parent, "document_id")
	assert.Equal(t, "docqa", parent["service_name"])
}

func TestWithErrorNil(t *testing.T) {
	l := Discard()
	assert.Same(t, l, l.WithError(nil))
	assert.NotSame(t, l, l.WithError(errors.New("boom")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
}
