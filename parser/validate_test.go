package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daslang/dasl/target"
)

func TestTrustRequiresChain(t *testing.T) {
	_, err := Parse(`
@trust("hybrid")
service Exchange {
	fn swap() { }
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "@chain")

	_, err = Parse(`
@trust("hybrid") @chain("ethereum")
service Exchange {
	fn swap() { }
}
`)
	require.NoError(t, err)
}

func TestSecurePublicExclusive(t *testing.T) {
	_, err := Parse(`
@secure @public
service Vault {
	fn lock() { }
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "@secure")
	require.Contains(t, err.Error(), "@public")
}

func TestMethodSecurePublicExclusive(t *testing.T) {
	_, err := Parse(`
service Vault {
	@secure @public
	fn lock() { }
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "lock")
}

func TestTrustModelEnum(t *testing.T) {
	for _, model := range []string{"hybrid", "centralized", "decentralized", "trustless"} {
		_, err := Parse(`
@trust("` + model + `") @chain("ethereum")
service S { fn f() { } }
`)
		require.NoError(t, err, "model %q", model)
	}

	_, err := Parse(`
@trust("full") @chain("ethereum")
service S { fn f() { } }
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid trust model")
}

func TestChainEnum(t *testing.T) {
	for _, chain := range []string{"ethereum", "ETH", "Polygon", "solana", "base"} {
		_, err := Parse(`
@chain("` + chain + `")
service S { fn f() { } }
`)
		require.NoError(t, err, "chain %q", chain)
	}

	_, err := Parse(`
@chain("dogecoin")
service S { fn f() { } }
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid chain identifier")
}

func TestBlockchainTargetRequiredAttributes(t *testing.T) {
	_, err := Parse(`
service Token @compile_target("blockchain") {
	fn mint() { }
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required attributes")
	require.Contains(t, err.Error(), "@secure")
	require.Contains(t, err.Error(), "@trust")
}

func TestBlockchainTargetForbiddenNamespace(t *testing.T) {
	_, err := Parse(`
@secure @trust("hybrid") @chain("ethereum")
service Token @compile_target("blockchain") {
	fn fetch() {
		let page = web::http_request("https://example.com");
	}
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forbidden")
	require.Contains(t, err.Error(), "web")
}

func TestForbiddenNamespaceInNestedExpression(t *testing.T) {
	// The namespace check walks the whole method body, including nested
	// arguments and control flow.
	_, err := Parse(`
@secure @trust("hybrid") @chain("ethereum")
service Token @compile_target("blockchain") {
	fn report() {
		if (enabled) {
			log::info(web::http_request(url));
		}
	}
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "web")
}

func TestAllowedNamespacePasses(t *testing.T) {
	_, err := Parse(`
@secure @trust("hybrid") @chain("ethereum")
service Token @compile_target("blockchain") {
	fn mint(to: address, amount: int) {
		chain::transfer(to, amount);
		crypto::hash(to);
	}
}
`)
	require.NoError(t, err)
}

func TestCustomConstraints(t *testing.T) {
	// An edge deployment that also bans the log namespace.
	constraints := target.DefaultConstraints()
	edge := constraints[target.Edge]
	edge.ForbiddenOperations = append(edge.ForbiddenOperations, "log::info")
	constraints[target.Edge] = edge

	source := `
@edge
service Sensor @compile_target("edge") {
	fn read() {
		log::info("reading");
	}
}
`
	_, err := Parse(source)
	require.NoError(t, err)

	_, err = Parse(source, WithConstraints(constraints))
	require.Error(t, err)
	require.Contains(t, err.Error(), "log")
}

func TestWebAssemblyTarget(t *testing.T) {
	_, err := Parse(`
@web
service Widget @compile_target("wasm") {
	fn render() { }
}
`)
	require.NoError(t, err)

	_, err = Parse(`
service Widget @compile_target("webassembly") {
	fn render() { }
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "@web")
}
