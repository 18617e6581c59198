package chain

import "testing"

func TestNewNetworksIncludesBuiltins(t *testing.T) {
	n := NewNetworks(nil)
	for _, name := range []string{"anvil", "sepolia"} {
		if _, err := n.Lookup(name); err != nil {
			t.Fatalf("expected builtin network %q, got error %v", name, err)
		}
	}
}

func TestLookupUnknownNetwork(t *testing.T) {
	n := NewNetworks(nil)
	if _, err := n.Lookup("mainnet"); err == nil {
		t.Fatal("expected NetworkUnknown for an unregistered network")
	}
}

func TestCustomRPCOverride(t *testing.T) {
	n := NewNetworks(map[string]string{"anvil": "http://example.invalid:9999"})
	net, err := n.Lookup("anvil")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if net.RPCURL != "http://example.invalid:9999" {
		t.Fatalf("expected overridden RPC URL, got %q", net.RPCURL)
	}
}

func TestRegistryIsImmutableAcrossInstances(t *testing.T) {
	a := NewNetworks(map[string]string{"anvil": "http://custom-a"})
	b := NewNetworks(nil)
	netB, _ := b.Lookup("anvil")
	if netB.RPCURL == "http://custom-a" {
		t.Fatal("one registry's override leaked into another instance")
	}
	_ = a
}
