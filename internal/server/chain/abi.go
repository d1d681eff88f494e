package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const factoryABIJSON = `[
 {"constant":true,"inputs":[{"name":"_proxy","type":"address"}],"name":"getSigner","outputs":[{"name":"","type":"address"}],"payable":false,"type":"function"},
 {"constant":true,"inputs":[{"name":"_signer","type":"address"}],"name":"getAccount","outputs":[{"name":"","type":"address"},{"name":"","type":"address"},{"name":"","type":"bool"}],"payable":false,"type":"function"}
]`

const proxyABIJSON = `[
 {"constant":true,"inputs":[],"name":"getOwner","outputs":[{"name":"","type":"address"}],"payable":false,"type":"function"},
 {"constant":true,"inputs":[],"name":"isLocked","outputs":[{"name":"","type":"bool"}],"payable":false,"type":"function"},
 {"constant":false,"inputs":[{"name":"_destination","type":"address"},{"name":"_value","type":"uint256"},{"name":"_data","type":"bytes"}],"name":"forward","outputs":[],"payable":false,"type":"function"}
]`

var (
	factoryABI = mustABI(factoryABIJSON)
	proxyABI   = mustABI(proxyABIJSON)
)

func mustABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}
