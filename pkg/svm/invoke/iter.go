package invoke

// AccountIter walks an instruction's accounts in order.
// Programs consume their accounts positionally through it instead of indexing.
type AccountIter struct {
	accounts []*AccountInfo
	pos      int
}

// NewAccountIter creates a cursor positioned before the first account.
func NewAccountIter(accounts []*AccountInfo) *AccountIter {
	return &AccountIter{accounts: accounts}
}

// Next returns the next account, or ErrNotEnoughAccountKeys once the list is exhausted.
func (it *AccountIter) Next() (*AccountInfo, error) {
	if it.pos >= len(it.accounts) {
		return nil, ErrNotEnoughAccountKeys
	}
	acc := it.accounts[it.pos]
	it.pos++
	return acc, nil
}

// Remaining returns how many accounts have not been consumed.
func (it *AccountIter) Remaining() int {
	return len(it.accounts) - it.pos
}
