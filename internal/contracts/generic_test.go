package contracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesFromSignature(t *testing.T) {
	types, err := typesFromSignature("updateConfig(uint256,address,bool)")
	require.NoError(t, err)
	require.Len(t, types, 3)
	assert.Equal(t, "uint256", types[0].String())
	assert.Equal(t, "address", types[1].String())
	assert.Equal(t, "bool", types[2].String())
}

func TestTypesFromSignature_NoArgs(t *testing.T) {
	types, err := typesFromSignature("execute()")
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestTypesFromSignature_Malformed(t *testing.T) {
	_, err := typesFromSignature("execute")
	assert.Error(t, err)
}

func TestMethodSelector_KnownValue(t *testing.T) {
	// keccak256("transfer(address,uint256)")[:4] = a9059cbb, a well-known
	// selector used as a sanity check on the hashing/truncation.
	selector := methodSelector("transfer(address,uint256)")
	assert.Equal(t, "a9059cbb", common.Bytes2Hex(selector))
}

func TestConvertValue_Uint(t *testing.T) {
	ty, err := abiTypeFor("uint256")
	require.NoError(t, err)

	v, err := convertValue(ty, float64(42))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), v)
}

func TestConvertValue_Address(t *testing.T) {
	ty, err := abiTypeFor("address")
	require.NoError(t, err)

	v, err := convertValue(ty, "0x00000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x1"), v)
}

func TestConvertValue_WrongType(t *testing.T) {
	ty, err := abiTypeFor("bool")
	require.NoError(t, err)

	_, err = convertValue(ty, "not-a-bool")
	assert.Error(t, err)
}

func TestEncodeArgs_ArityMismatch(t *testing.T) {
	ty, err := abiTypeFor("uint256")
	require.NoError(t, err)

	_, err = encodeArgs([]abi.Type{ty}, []interface{}{})
	assert.Error(t, err)
}

func TestToBigInt_FromHexString(t *testing.T) {
	v, err := toBigInt("0x2a")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), v)
}

func TestAssign_BigIntPointer(t *testing.T) {
	var out *big.Int
	err := assign(&out, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), out)
}

func TestAssign_TypeMismatch(t *testing.T) {
	var out uint8
	err := assign(&out, "wrong type")
	assert.Error(t, err)
}

func TestConvertValue_AddressSlice_LiteralArray(t *testing.T) {
	ty, err := abiTypeFor("address[]")
	require.NoError(t, err)

	v, err := convertValue(ty, []interface{}{
		"0x0000000000000000000000000000000000000001",
		"0x0000000000000000000000000000000000000002",
	})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress("0x1"), common.HexToAddress("0x2")}, v)
}

func TestConvertValue_AddressSlice_JSONEncodedString(t *testing.T) {
	ty, err := abiTypeFor("address[]")
	require.NoError(t, err)

	v, err := convertValue(ty, `["0x0000000000000000000000000000000000000001", "0x0000000000000000000000000000000000000002"]`)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress("0x1"), common.HexToAddress("0x2")}, v)
}

func TestConvertValue_AddressSlice_MalformedJSONString(t *testing.T) {
	ty, err := abiTypeFor("address[]")
	require.NoError(t, err)

	_, err = convertValue(ty, `not-json`)
	assert.Error(t, err)
}
