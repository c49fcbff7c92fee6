package native

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/n3-go/n3node/pkg/core/interop"
	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

// MaxStdlibJSONDepth is not referenced by jsonSerialize or
// jsonDeserialize; their nesting is bounded by
// stackitem.MaxDeserializeDepth (32), which ToJSON and FromJSON apply.
const MaxStdlibJSONDepth = 10

var errInvalidBase = errors.New("native: invalid number base")

// StdLib is the native contract exposing string/number/serialization
// helpers too fiddly to hand-write in NeoVM bytecode (§4.6).
type StdLib struct {
	md *ContractMD
}

// NewStdLib builds the StdLib native contract.
func NewStdLib() *StdLib {
	s := &StdLib{md: NewContractMD(IDStdLib, NameStdLib)}
	md := s.md
	md.Register(&Method{Name: "serialize", RequiredFlags: vm.CallFlagNone, Price: 1 << 12, Func: s.serialize})
	md.Register(&Method{Name: "deserialize", RequiredFlags: vm.CallFlagNone, Price: 1 << 14, Func: s.deserialize})
	md.Register(&Method{Name: "jsonSerialize", RequiredFlags: vm.CallFlagNone, Price: 1 << 12, Func: s.jsonSerialize})
	md.Register(&Method{Name: "jsonDeserialize", RequiredFlags: vm.CallFlagNone, Price: 1 << 14, Func: s.jsonDeserialize})
	md.Register(&Method{Name: "itoa", RequiredFlags: vm.CallFlagNone, Price: 1 << 12, Func: s.itoa})
	md.Register(&Method{Name: "atoi", RequiredFlags: vm.CallFlagNone, Price: 1 << 12, Func: s.atoi})
	md.Register(&Method{Name: "base64Encode", RequiredFlags: vm.CallFlagNone, Price: 1 << 12, Func: s.base64Encode})
	md.Register(&Method{Name: "base64Decode", RequiredFlags: vm.CallFlagNone, Price: 1 << 12, Func: s.base64Decode})
	md.Register(&Method{Name: "base58Encode", RequiredFlags: vm.CallFlagNone, Price: 1 << 13, Func: s.base58Encode})
	md.Register(&Method{Name: "base58Decode", RequiredFlags: vm.CallFlagNone, Price: 1 << 13, Func: s.base58Decode})
	md.Register(&Method{Name: "memoryCompare", RequiredFlags: vm.CallFlagNone, Price: 1 << 12, Func: s.memoryCompare})
	return s
}

// Metadata implements Contract.
func (s *StdLib) Metadata() *ContractMD { return s.md }

// OnPersist implements Contract.
func (s *StdLib) OnPersist(ic *interop.Context) error { return nil }

// PostPersist implements Contract.
func (s *StdLib) PostPersist(ic *interop.Context) error { return nil }

func (s *StdLib) serialize(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	data, err := stackitem.Serialize(args[0])
	if err != nil {
		panic(err)
	}
	return stackitem.NewByteString(data)
}

func (s *StdLib) deserialize(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	data, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	item, err := stackitem.Deserialize(data)
	if err != nil {
		panic(err)
	}
	return item
}

func (s *StdLib) jsonSerialize(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	data, err := stackitem.ToJSON(args[0])
	if err != nil {
		panic(err)
	}
	return stackitem.NewByteString(data)
}

func (s *StdLib) jsonDeserialize(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	data, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	item, err := stackitem.FromJSON(data)
	if err != nil {
		panic(err)
	}
	return item
}

func (s *StdLib) itoa(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	n, err := argBigInt(args, 0)
	if err != nil {
		panic(err)
	}
	base := 10
	if len(args) > 1 {
		base = int(mustBigInt(args, 1).Int64())
	}
	return stackitem.NewByteString([]byte(n.Text(base)))
}

func (s *StdLib) atoi(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	str, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	base := 10
	if len(args) > 1 {
		base = int(mustBigInt(args, 1).Int64())
	}
	n, err := strconv.ParseInt(string(str), base, 64)
	if err != nil {
		panic(errInvalidBase)
	}
	return stackitem.NewInteger(n)
}

func (s *StdLib) base64Encode(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	b, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	return stackitem.NewByteString([]byte(base64.StdEncoding.EncodeToString(b)))
}

func (s *StdLib) base64Decode(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	str, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	b, err := base64.StdEncoding.DecodeString(string(str))
	if err != nil {
		panic(err)
	}
	return stackitem.NewByteString(b)
}

func (s *StdLib) base58Encode(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	b, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	return stackitem.NewByteString([]byte(base58.Encode(b)))
}

func (s *StdLib) base58Decode(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	str, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	b, err := base58.Decode(string(str))
	if err != nil {
		panic(err)
	}
	return stackitem.NewByteString(b)
}

func (s *StdLib) memoryCompare(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	a, err := argBytes(args, 0)
	if err != nil {
		panic(err)
	}
	b, err := argBytes(args, 1)
	if err != nil {
		panic(err)
	}
	return stackitem.NewInteger(int64(bytes.Compare(a, b)))
}
