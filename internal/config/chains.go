package config

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application/relayer"
	"github.com/privacy-pool-network/pool-daemon/internal/core/domain"
	"github.com/privacy-pool-network/pool-daemon/pkg/field"
)

// AssetConfig is the relaying policy for one asset. Amounts are decimal or
// 0x hex strings in the smallest unit of the asset.
type AssetConfig struct {
	Address           string `mapstructure:"address"`
	FeeBPS            string `mapstructure:"fee_bps"`
	MinWithdrawAmount string `mapstructure:"min_withdraw_amount"`
}

// ChainConfig is one entry of the chains list of the config file.
type ChainConfig struct {
	ChainID            uint64        `mapstructure:"chain_id"`
	RPCURL             string        `mapstructure:"rpc_url"`
	EntrypointAddress  string        `mapstructure:"entrypoint_address"`
	FeeReceiverAddress string        `mapstructure:"fee_receiver_address"`
	SignerPrivateKey   string        `mapstructure:"signer_private_key"`
	MaxGasPrice        string        `mapstructure:"max_gas_price"`
	StartBlock         uint64        `mapstructure:"start_block"`
	Assets             []AssetConfig `mapstructure:"assets"`
}

// LoadChains reads and validates the chains listed in the file at path.
func LoadChains(path string) ([]ChainConfig, error) {
	if path == "" {
		return nil, domain.ErrMissingConfig.WithMessage("missing config file path")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, domain.ErrMissingConfig.WithMessage(
			"failed to read config file %s", path,
		).Wrap(err)
	}

	var chains []ChainConfig
	if err := v.UnmarshalKey("chains", &chains); err != nil {
		return nil, domain.ErrInvalidConfig.Wrap(err)
	}
	if len(chains) <= 0 {
		return nil, domain.ErrMissingConfig.WithMessage(
			"no chain found in config file %s", path,
		)
	}

	seen := make(map[uint64]struct{}, len(chains))
	for _, c := range chains {
		if _, ok := seen[c.ChainID]; ok {
			return nil, domain.ErrInvalidConfig.WithMessage(
				"chain %d configured more than once", c.ChainID,
			)
		}
		seen[c.ChainID] = struct{}{}

		if err := c.validate(); err != nil {
			return nil, err
		}
	}
	return chains, nil
}

func (c ChainConfig) validate() error {
	if c.ChainID == 0 {
		return domain.ErrInvalidConfig.WithMessage("missing chain id")
	}
	if c.RPCURL == "" {
		return domain.ErrMissingConfig.WithMessage(
			"missing rpc url for chain %d", c.ChainID,
		)
	}
	if !common.IsHexAddress(c.EntrypointAddress) {
		return domain.ErrInvalidConfig.WithMessage(
			"invalid entrypoint address for chain %d", c.ChainID,
		)
	}
	if !common.IsHexAddress(c.FeeReceiverAddress) {
		return domain.ErrInvalidConfig.WithMessage(
			"invalid fee receiver address for chain %d", c.ChainID,
		)
	}
	if len(c.Assets) <= 0 {
		return domain.ErrMissingConfig.WithMessage(
			"no asset configured for chain %d", c.ChainID,
		)
	}
	if _, err := c.SignerKey(); err != nil {
		return err
	}
	_, err := c.RelayerChain()
	return err
}

// SignerKey parses the key the relayer signs transactions and fee
// commitments with. It returns nil if none is configured.
func (c ChainConfig) SignerKey() (*ecdsa.PrivateKey, error) {
	if c.SignerPrivateKey == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.SignerPrivateKey, "0x"))
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithMessage(
			"invalid signer private key for chain %d", c.ChainID,
		)
	}
	return key, nil
}

// RelayerChain converts the config into the relaying policy of the chain.
func (c ChainConfig) RelayerChain() (relayer.Chain, error) {
	key, err := c.SignerKey()
	if err != nil {
		return relayer.Chain{}, err
	}
	maxGasPrice, err := parseOptionalAmount(c.MaxGasPrice)
	if err != nil {
		return relayer.Chain{}, domain.ErrInvalidConfig.WithMessage(
			"invalid max gas price for chain %d", c.ChainID,
		)
	}

	assets := make(map[common.Address]relayer.Asset, len(c.Assets))
	for _, a := range c.Assets {
		if !common.IsHexAddress(a.Address) {
			return relayer.Chain{}, domain.ErrInvalidConfig.WithMessage(
				"invalid asset address %q for chain %d", a.Address, c.ChainID,
			)
		}
		address := common.HexToAddress(a.Address)
		if _, ok := assets[address]; ok {
			return relayer.Chain{}, domain.ErrInvalidConfig.WithMessage(
				"asset %s configured more than once for chain %d",
				address.Hex(), c.ChainID,
			)
		}
		feeBPS, err := parseOptionalAmount(a.FeeBPS)
		if err != nil {
			return relayer.Chain{}, domain.ErrInvalidConfig.WithMessage(
				"invalid fee for asset %s of chain %d", address.Hex(), c.ChainID,
			)
		}
		minAmount, err := parseOptionalAmount(a.MinWithdrawAmount)
		if err != nil {
			return relayer.Chain{}, domain.ErrInvalidConfig.WithMessage(
				"invalid min withdraw amount for asset %s of chain %d",
				address.Hex(), c.ChainID,
			)
		}
		assets[address] = relayer.Asset{
			Address:           address,
			FeeBPS:            feeBPS,
			MinWithdrawAmount: minAmount,
		}
	}

	return relayer.Chain{
		ID:          c.ChainID,
		Entrypoint:  common.HexToAddress(c.EntrypointAddress),
		FeeReceiver: common.HexToAddress(c.FeeReceiverAddress),
		SignerKey:   key,
		MaxGasPrice: maxGasPrice,
		Assets:      assets,
	}, nil
}

func parseOptionalAmount(s string) (*big.Int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return field.FromString(s)
}
