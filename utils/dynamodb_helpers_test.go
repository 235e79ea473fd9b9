package utils

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectKey(t *testing.T) {
	item := map[string]types.AttributeValue{
		"pk":     &types.AttributeValueMemberS{Value: "USER#ana@example.com"},
		"sk":     &types.AttributeValueMemberS{Value: "PROFILE"},
		"energy": &types.AttributeValueMemberN{Value: "2"},
	}

	key, err := ProjectKey(item, "pk", "sk")
	require.NoError(t, err)
	assert.Equal(t, map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "USER#ana@example.com"},
		"sk": &types.AttributeValueMemberS{Value: "PROFILE"},
	}, key)
}

func TestProjectKey_Malformed(t *testing.T) {
	item := map[string]types.AttributeValue{
		"pk":     &types.AttributeValueMemberS{Value: "USER#ana@example.com"},
		"energy": &types.AttributeValueMemberN{Value: "2"},
	}

	_, err := ProjectKey(item, "pk", "sk")
	assert.ErrorContains(t, err, `"sk"`)

	_, err = ProjectKey(item, "energy")
	assert.Error(t, err)
}
