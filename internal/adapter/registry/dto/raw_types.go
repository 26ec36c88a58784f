package registry_dto

// ChainRaw represents a blockchain network entry as received from the
// public chain directory.
type ChainRaw struct {
	Name      string      `json:"name"`
	Chain     string      `json:"chain"`
	RPC       []string    `json:"rpc"`
	Currency  CurrencyRaw `json:"nativeCurrency"`
	InfoURL   string      `json:"infoURL"`
	ShortName string      `json:"shortName"`
	ChainID   int64       `json:"chainId"`
	NetworkID int64       `json:"networkId"`
}

// CurrencyRaw defines the native currency details of a chain from raw data.
type CurrencyRaw struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}
