package utils

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ProjectKey copies the string key attributes named by attrs out of item.
// A row missing one of them, or holding it as another type, is an error.
func ProjectKey(item map[string]types.AttributeValue, attrs ...string) (map[string]types.AttributeValue, error) {
	key := make(map[string]types.AttributeValue, len(attrs))
	for _, name := range attrs {
		v, ok := item[name].(*types.AttributeValueMemberS)
		if !ok || v.Value == "" {
			return nil, fmt.Errorf("row has no string key attribute %q", name)
		}
		key[name] = &types.AttributeValueMemberS{Value: v.Value}
	}
	return key, nil
}
