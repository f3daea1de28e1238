package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolABIJSON = `[
	{"type":"event","name":"Deposited","anonymous":false,"inputs":[
		{"name":"_depositor","type":"address","indexed":true},
		{"name":"_commitment","type":"uint256","indexed":false},
		{"name":"_label","type":"uint256","indexed":false},
		{"name":"_value","type":"uint256","indexed":false},
		{"name":"_precommitmentHash","type":"uint256","indexed":false}]},
	{"type":"event","name":"Withdrawn","anonymous":false,"inputs":[
		{"name":"_processooor","type":"address","indexed":true},
		{"name":"_value","type":"uint256","indexed":false},
		{"name":"_spentNullifier","type":"uint256","indexed":false},
		{"name":"_newCommitment","type":"uint256","indexed":false}]},
	{"type":"event","name":"Ragequit","anonymous":false,"inputs":[
		{"name":"_ragequitter","type":"address","indexed":true},
		{"name":"_commitment","type":"uint256","indexed":false},
		{"name":"_label","type":"uint256","indexed":false},
		{"name":"_value","type":"uint256","indexed":false}]},
	{"type":"function","name":"ASSET","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"address"}]}
]`

const entrypointABIJSON = `[
	{"type":"function","name":"scopeToPool","stateMutability":"view",
		"inputs":[{"name":"_scope","type":"uint256"}],
		"outputs":[{"name":"_pool","type":"address"}]},
	{"type":"function","name":"relay","stateMutability":"nonpayable","outputs":[],
		"inputs":[
			{"name":"_withdrawal","type":"tuple","components":[
				{"name":"processooor","type":"address"},
				{"name":"data","type":"bytes"}]},
			{"name":"_proof","type":"tuple","components":[
				{"name":"pA","type":"uint256[2]"},
				{"name":"pB","type":"uint256[2][2]"},
				{"name":"pC","type":"uint256[2]"},
				{"name":"pubSignals","type":"uint256[8]"}]},
			{"name":"_scope","type":"uint256"}]}
]`

var (
	poolABI       = mustParseABI(poolABIJSON)
	entrypointABI = mustParseABI(entrypointABIJSON)

	depositedEvent = poolABI.Events["Deposited"]
	withdrawnEvent = poolABI.Events["Withdrawn"]
	ragequitEvent  = poolABI.Events["Ragequit"]
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

type abiMethod struct {
	abi  abi.ABI
	name string
}

func entrypointABIMethod(name string) abiMethod {
	return abiMethod{entrypointABI, name}
}

func poolABIMethod(name string) abiMethod {
	return abiMethod{poolABI, name}
}
