package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codepay/internal/service/payment/domain"
)

func TestCELRuleEngineAdapter_Evaluate(t *testing.T) {
	engine, err := NewCELRuleEngineAdapter()
	require.NoError(t, err)

	fact := domain.CallbackFact{OrderID: "ORD-1", Price: 9.9, Type: 2}

	tests := []struct {
		rule string
		want bool
	}{
		{`price >= 0.01`, true},
		{`price <= 500.0 && type in [1, 2]`, true},
		{`price > 100.0`, false},
		{`order_id.startsWith("ORD-")`, true},
		{`type == 1`, false},
	}
	for _, tt := range tests {
		got, err := engine.Evaluate(tt.rule, fact)
		require.NoError(t, err, "rule %q", tt.rule)
		assert.Equal(t, tt.want, got, "rule %q", tt.rule)
	}
}

func TestCELRuleEngineAdapter_InvalidRule(t *testing.T) {
	engine, err := NewCELRuleEngineAdapter()
	require.NoError(t, err)

	_, err = engine.Evaluate(`price >=`, domain.CallbackFact{})
	assert.Error(t, err)

	// 规则必须返回布尔值
	_, err = engine.Evaluate(`price + 1.0`, domain.CallbackFact{})
	assert.Error(t, err)
}
