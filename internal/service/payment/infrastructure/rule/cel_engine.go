// payment-service/internal/infrastructure/rule/cel_engine.go
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"codepay/internal/service/payment/domain"
)

// CELRuleEngineAdapter 是 domain.RuleEngine 接口的一个具体实现。
// 它使用 cel-go 来执行规则评估，把第三方库的 API 适配到我们自己的领域接口。
// 规则例子：`price <= 500.0 && type in [1, 2]`
type CELRuleEngineAdapter struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program // 按规则原文缓存编译结果
}

// NewCELRuleEngineAdapter 创建规则引擎适配器，声明事实对象的全部变量。
func NewCELRuleEngineAdapter() (*CELRuleEngineAdapter, error) {
	env, err := cel.NewEnv(
		cel.Variable("order_id", cel.StringType),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("type", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELRuleEngineAdapter{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 实现了 domain.RuleEngine 接口。
func (a *CELRuleEngineAdapter) Evaluate(ruleDefinition string, fact domain.CallbackFact) (bool, error) {
	prg, err := a.compile(ruleDefinition)
	if err != nil {
		return false, err // 规则定义本身可能存在语法错误
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"order_id": fact.OrderID,
		"price":    fact.Price,
		"type":     fact.Type,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rule: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q did not evaluate to a boolean", ruleDefinition)
	}
	return result, nil
}

func (a *CELRuleEngineAdapter) compile(ruleDefinition string) (cel.Program, error) {
	a.mu.RLock()
	prg, ok := a.programs[ruleDefinition]
	a.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := a.env.Compile(ruleDefinition)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %q: %w", ruleDefinition, issues.Err())
	}
	prg, err := a.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule program: %w", err)
	}

	a.mu.Lock()
	a.programs[ruleDefinition] = prg
	a.mu.Unlock()
	return prg, nil
}
