package ledger

import (
	"context"
	"encoding/json"

	oraclerr "github.com/vinayprograms/oraclekit/errors"
)

// accountJSON is one entry of `rooch account list --json`.
type accountJSON struct {
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// DefaultAccount discovers the sender account from the local keystore.
// Preference order: the entry named "default", then any entry marked active.
// Used when the config does not pin a sender explicitly.
func (c *RoochClient) DefaultAccount(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "account", "list", "--json")
	if err != nil {
		return "", oraclerr.Wrap(oraclerr.ErrCodeNoAccount, "list accounts", err)
	}

	var accounts map[string]accountJSON
	if err := json.Unmarshal(out, &accounts); err != nil {
		return "", oraclerr.Wrap(oraclerr.ErrCodeNoAccount, "decode account list", err)
	}

	if acct, ok := accounts["default"]; ok && acct.Address != "" {
		return acct.Address, nil
	}
	for _, acct := range accounts {
		if acct.Active && acct.Address != "" {
			return acct.Address, nil
		}
	}

	return "", oraclerr.New(oraclerr.ErrCodeNoAccount, "no usable account in keystore")
}
