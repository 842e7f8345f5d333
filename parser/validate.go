package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daslang/dasl/ast"
)

var validTrustModels = []string{"hybrid", "centralized", "decentralized", "trustless"}

// "eth" is accepted as common shorthand for ethereum.
var validChains = []string{
	"ethereum", "polygon", "bsc", "solana", "bitcoin",
	"avalanche", "arbitrum", "optimism", "base", "near", "eth",
}

// validateService enforces compilation-target constraints and the
// security attribute rules on a fully-parsed service. Violations are
// semantic errors anchored at the service (or method) declaration.
func (p *Parser) validateService(svc *ast.Service) error {
	if err := p.validateTargetConstraints(svc); err != nil {
		return err
	}
	return p.validateSecurity(svc)
}

func (p *Parser) validateTargetConstraints(svc *ast.Service) error {
	if svc.Target == nil {
		return nil
	}
	constraint := svc.Target.Constraint

	var missing []string
	for _, required := range constraint.RequiredAttributes {
		if !hasAttribute(svc.Attributes, required) {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return &Error{
			Kind: ErrSemantic,
			Message: fmt.Sprintf("service %q is missing required attributes for target %s: %s",
				svc.Name, svc.Target.Target, strings.Join(missing, ", ")),
			Position: svc.ServicePos,
		}
	}

	forbidden := constraint.ForbiddenNamespaces()
	for _, method := range svc.Methods {
		var violations []string
		for ns := range collectNamespaces(method.Body) {
			if _, ok := forbidden[ns]; ok {
				violations = append(violations, ns)
			}
		}
		if len(violations) > 0 {
			sort.Strings(violations)
			return &Error{
				Kind: ErrSemantic,
				Message: fmt.Sprintf("method %q uses namespaces forbidden for target %s: %s",
					method.Name, svc.Target.Target, strings.Join(violations, ", ")),
				Position: method.FnPos,
			}
		}
	}
	return nil
}

func (p *Parser) validateSecurity(svc *ast.Service) error {
	hasTrust := hasAttribute(svc.Attributes, "@trust")
	hasChain := hasAttribute(svc.Attributes, "@chain")
	hasSecure := hasAttribute(svc.Attributes, "@secure")
	hasPublic := hasAttribute(svc.Attributes, "@public")

	if hasTrust && !hasChain {
		return &Error{
			Kind: ErrSemantic,
			Message: fmt.Sprintf("service %q with @trust attribute must also have @chain attribute",
				svc.Name),
			Position: svc.ServicePos,
		}
	}
	if hasSecure && hasPublic {
		return &Error{
			Kind: ErrSemantic,
			Message: fmt.Sprintf("service %q cannot have both @secure and @public attributes",
				svc.Name),
			Position: svc.ServicePos,
		}
	}

	for _, attr := range svc.Attributes {
		switch attr.Name {
		case "@trust":
			model := attr.StringParam(0)
			if model != "" && !containsString(validTrustModels, model) {
				return &Error{
					Kind: ErrSemantic,
					Message: fmt.Sprintf("service %q has invalid trust model %q (valid: %s)",
						svc.Name, model, strings.Join(validTrustModels, ", ")),
					Position: attr.AtPos,
				}
			}
		case "@chain":
			for i := range attr.Params {
				chain := attr.StringParam(i)
				if chain == "" {
					continue
				}
				if !containsString(validChains, strings.ToLower(chain)) {
					return &Error{
						Kind: ErrSemantic,
						Message: fmt.Sprintf("service %q has invalid chain identifier %q (valid: %s)",
							svc.Name, chain, strings.Join(validChains, ", ")),
						Position: attr.AtPos,
					}
				}
			}
		}
	}

	for _, method := range svc.Methods {
		if hasAttribute(method.Attributes, "@secure") && hasAttribute(method.Attributes, "@public") {
			return &Error{
				Kind: ErrSemantic,
				Message: fmt.Sprintf("function %q in service %q cannot have both @secure and @public attributes",
					method.Name, svc.Name),
				Position: method.FnPos,
			}
		}
	}
	return nil
}

func hasAttribute(attrs []*ast.Attribute, name string) bool {
	for _, attr := range attrs {
		if attr.Name == name {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// collectNamespaces walks a method body and records the namespace of
// every call whose name carries a "::" qualifier, "chain" from
// chain::deploy and the like. The check is syntactic; calls routed
// through variables are not tracked.
func collectNamespaces(body *ast.Block) map[string]struct{} {
	namespaces := map[string]struct{}{}
	if body == nil {
		return namespaces
	}
	ast.Inspect(body, func(n ast.Node) bool {
		if call, ok := n.(*ast.Call); ok {
			if ns := call.Namespace(); ns != "" {
				namespaces[ns] = struct{}{}
			}
		}
		return true
	})
	return namespaces
}
