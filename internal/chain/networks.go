package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"wormcore/internal/wormerr"
)

// Network holds the fixed addressing needed to talk to one deployment of
// the protocol.
type Network struct {
	Name     string
	RPCURL   string
	BethAddr common.Address
	WormAddr common.Address
}

// Networks is an immutable name->Network registry, built once at
// construction and never mutated — the Go equivalent of the protocol's
// "process-wide immutable singleton" design note, implemented as an
// explicit value rather than a package-level global so callers can
// construct test registries freely.
type Networks struct {
	byName map[string]Network
}

// NewNetworks builds the registry with the protocol's built-in networks
// (anvil, sepolia), optionally overriding a network's RPC URL (the
// --custom-rpc escape hatch named in the external-interfaces contract).
func NewNetworks(customRPC map[string]string) Networks {
	defs := []Network{
		{
			Name:     "anvil",
			RPCURL:   "http://127.0.0.1:8545",
			BethAddr: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
			WormAddr: common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"),
		},
		{
			Name:     "sepolia",
			RPCURL:   "https://rpc.sepolia.org",
			BethAddr: common.HexToAddress("0x0000000000000000000000000000000000beef"),
			WormAddr: common.HexToAddress("0x0000000000000000000000000000000000b00c"),
		},
	}
	byName := make(map[string]Network, len(defs))
	for _, d := range defs {
		if url, ok := customRPC[d.Name]; ok {
			d.RPCURL = url
		}
		byName[d.Name] = d
	}
	return Networks{byName: byName}
}

// Lookup returns the named network, or NetworkUnknown if it isn't
// registered.
func (n Networks) Lookup(name string) (Network, error) {
	net, ok := n.byName[name]
	if !ok {
		return Network{}, wormerr.New(wormerr.NetworkUnknown, fmt.Sprintf("network %q is not registered", name))
	}
	return net, nil
}
