package entity

// Chain is one entry of the public chain registry directory: the network's
// identity plus the candidate RPC URLs it declares.
type Chain struct {
	Name      string
	Chain     string
	ShortName string
	ChainID   int64
	NetworkID int64
	RPC       []RPCURL
	Currency  Currency
	InfoURL   string
}

// Currency defines the native currency details of a chain.
type Currency struct {
	Name     string
	Symbol   string
	Decimals int
}

// TokenInfo describes an ERC-20 contract's metadata reads.
type TokenInfo struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// ContractSource is verified source code for a deployed contract,
// together with the service that supplied it.
type ContractSource struct {
	Address      string            `json:"address"`
	ContractName string            `json:"contractName,omitempty"`
	Origin       string            `json:"origin"`
	Files        map[string]string `json:"files"`
}

// Source origins.
const (
	SourceOriginSourcify  = "sourcify"
	SourceOriginEtherscan = "etherscan"
)
