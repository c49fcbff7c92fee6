package native

import (
	"math/big"

	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// argUint160 reads a 20-byte script hash out of args[i].
func argUint160(args []stackitem.Item, i int) (util.Uint160, error) {
	b, err := args[i].TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesLE(b)
}

// argBigInt reads an integer-convertible item out of args[i].
func argBigInt(args []stackitem.Item, i int) (*big.Int, error) {
	return args[i].TryInteger()
}

// argBytes reads a byte-convertible item out of args[i].
func argBytes(args []stackitem.Item, i int) ([]byte, error) {
	return args[i].TryBytes()
}

func mustUint160(args []stackitem.Item, i int) util.Uint160 {
	u, err := argUint160(args, i)
	if err != nil {
		panic(err)
	}
	return u
}

func mustBigInt(args []stackitem.Item, i int) *big.Int {
	n, err := argBigInt(args, i)
	if err != nil {
		panic(err)
	}
	return n
}
