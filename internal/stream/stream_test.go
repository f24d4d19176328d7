package stream

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stixgraph/internal/stixcore"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	objects := []stixcore.Object{
		{"type": "x-mitre-tactic", "id": "x-mitre-tactic--1", "name": "Strategic Planning"},
		{"type": "attack-pattern", "id": "attack-pattern--2", "name": "5Ds"},
	}

	msgs, err := EncodeObjects(objects)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "x-mitre-tactic--1", string(msgs[0].Key))
	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, TypeHeader, msgs[0].Headers[0].Key)
	assert.Equal(t, "x-mitre-tactic", string(msgs[0].Headers[0].Value))

	o, err := DecodeObject(msgs[1])
	require.NoError(t, err)
	assert.Equal(t, "attack-pattern--2", o.ID())
	assert.Equal(t, "5Ds", o["name"])
}

func TestEncodeRejectsObjectWithoutID(t *testing.T) {
	_, err := EncodeObjects([]stixcore.Object{{"type": "identity"}})
	assert.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeObject(kafka.Message{Key: []byte("k"), Value: []byte("not json")})
	assert.Error(t, err)

	_, err = DecodeObject(kafka.Message{Key: []byte("k"), Value: []byte(`{"type":"identity"}`)})
	assert.Error(t, err)
}
