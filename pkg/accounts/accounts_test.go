package accounts

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fortiblox/x1-mint/pkg/types"
)

// Helper function to create test pubkeys
func testPubkey(seed string) types.Pubkey {
	return types.PubkeyFromSeed(seed)
}

// Helper function to create test accounts
func testAccount(lamports types.Lamports, data []byte, owner types.Pubkey) *types.Account {
	return &types.Account{
		Lamports:   lamports,
		Data:       data,
		Owner:      owner,
		Executable: false,
		RentEpoch:  0,
	}
}

// backends returns a fresh store per backend so each test runs against both.
func backends(t *testing.T) map[string]AccountsDB {
	t.Helper()

	bdb, err := NewBadgerDB(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerDB failed: %v", err)
	}
	t.Cleanup(func() { _ = bdb.Close() })

	return map[string]AccountsDB{
		"memory": NewMemoryDB(),
		"badger": bdb,
	}
}

func TestAccountsDB_SetAndGet(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			pubkey := testPubkey("test_account")
			account := testAccount(1_000_000_000, []byte("test_data"), types.MintProgramID)
			account.RentEpoch = 7

			if err := db.Set(pubkey, account); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			retrieved, err := db.Get(pubkey)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if retrieved == nil {
				t.Fatal("Get returned nil for existing account")
			}
			if !retrieved.Equal(account) {
				t.Errorf("expected %+v, got %+v", account, retrieved)
			}
		})
	}
}

func TestAccountsDB_GetNotFound(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			account, err := db.Get(testPubkey("nonexistent"))
			if err != nil {
				t.Fatalf("Get should not error for nonexistent account: %v", err)
			}
			if account != nil {
				t.Error("Get should return nil for nonexistent account")
			}
		})
	}
}

func TestAccountsDB_HasAndDelete(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			pubkey := testPubkey("test_account")

			if db.Has(pubkey) {
				t.Error("Has should return false for nonexistent account")
			}

			_ = db.Set(pubkey, testAccount(1000, nil, types.SystemProgramID))
			if !db.Has(pubkey) {
				t.Error("Has should return true for existing account")
			}

			if err := db.Delete(pubkey); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if db.Has(pubkey) {
				t.Error("account should be deleted")
			}
			if retrieved, _ := db.Get(pubkey); retrieved != nil {
				t.Error("Get should return nil for deleted account")
			}

			// Deleting again is a no-op.
			if err := db.Delete(pubkey); err != nil {
				t.Errorf("Delete should not error for nonexistent account: %v", err)
			}
		})
	}
}

func TestAccountsDB_Count(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				pubkey := testPubkey(fmt.Sprintf("account_%d", i))
				_ = db.Set(pubkey, testAccount(types.Lamports(i*1000), nil, types.SystemProgramID))
			}
			if db.Count() != 10 {
				t.Errorf("expected 10 accounts, got %d", db.Count())
			}

			// Overwrite does not change the count
			_ = db.Set(testPubkey("account_3"), testAccount(1, []byte{1}, types.SystemProgramID))
			if db.Count() != 10 {
				t.Errorf("expected 10 accounts after overwrite, got %d", db.Count())
			}

			_ = db.Delete(testPubkey("account_0"))
			if db.Count() != 9 {
				t.Errorf("expected 9 accounts after delete, got %d", db.Count())
			}
		})
	}
}

func TestAccountsDB_ForEachOrdered(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				_ = db.Set(testPubkey(fmt.Sprintf("k%d", i)), testAccount(types.Lamports(i), nil, types.SystemProgramID))
			}

			var prev *types.Pubkey
			visited := 0
			err := db.ForEach(func(pubkey types.Pubkey, account *types.Account) error {
				if prev != nil && bytes.Compare(prev[:], pubkey[:]) >= 0 {
					t.Errorf("keys out of order: %s then %s", prev, pubkey)
				}
				pk := pubkey
				prev = &pk
				visited++
				return nil
			})
			if err != nil {
				t.Fatalf("ForEach failed: %v", err)
			}
			if visited != 20 {
				t.Errorf("expected 20 visits, got %d", visited)
			}
		})
	}
}

func TestAccountsDB_ForEachStops(t *testing.T) {
	stop := errors.New("stop")
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				_ = db.Set(testPubkey(fmt.Sprintf("s%d", i)), testAccount(1, nil, types.SystemProgramID))
			}

			visited := 0
			err := db.ForEach(func(types.Pubkey, *types.Account) error {
				visited++
				return stop
			})
			if !errors.Is(err, stop) {
				t.Errorf("expected stop error, got %v", err)
			}
			if visited != 1 {
				t.Errorf("expected 1 visit, got %d", visited)
			}
		})
	}
}

func TestAccountsDB_DataIsolation(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			pubkey := testPubkey("test_account")
			originalData := []byte("original_data")
			_ = db.Set(pubkey, testAccount(1000, originalData, types.SystemProgramID))

			// Modify the original data
			originalData[0] = 'X'

			retrieved, _ := db.Get(pubkey)
			if retrieved.Data[0] == 'X' {
				t.Error("modifying original data should not affect stored data")
			}

			// Modify retrieved data
			retrieved.Data[0] = 'Y'

			retrieved2, _ := db.Get(pubkey)
			if retrieved2.Data[0] == 'Y' {
				t.Error("modifying retrieved data should not affect stored data")
			}
		})
	}
}

func TestAccountsDB_SetNil(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Set(testPubkey("nil"), nil); !errors.Is(err, ErrNilAccount) {
				t.Errorf("expected ErrNilAccount, got %v", err)
			}
		})
	}
}

func TestBadgerDB_Reopen(t *testing.T) {
	dir := t.TempDir()
	pubkey := testPubkey("persistent")

	db, err := NewBadgerDB(dir)
	if err != nil {
		t.Fatalf("NewBadgerDB failed: %v", err)
	}
	_ = db.Set(pubkey, testAccount(42, []byte{1, 2, 3}, types.MintProgramID))
	_ = db.Set(testPubkey("other"), testAccount(1, nil, types.SystemProgramID))
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = NewBadgerDB(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	if db.Count() != 2 {
		t.Errorf("expected count 2 after reopen, got %d", db.Count())
	}
	retrieved, err := db.Get(pubkey)
	if err != nil || retrieved == nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if retrieved.Lamports != 42 || !bytes.Equal(retrieved.Data, []byte{1, 2, 3}) {
		t.Errorf("unexpected account after reopen: %+v", retrieved)
	}
}

func TestMemoryDB_Close(t *testing.T) {
	db := NewMemoryDB()
	_ = db.Set(testPubkey("test_account"), testAccount(1000, nil, types.SystemProgramID))

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if db.Count() != 0 {
		t.Error("DB should be empty after close")
	}
	if _, err := db.Get(testPubkey("test_account")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryDB_Concurrent(t *testing.T) {
	db := NewMemoryDB()
	var wg sync.WaitGroup

	// Concurrent writes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pubkey := testPubkey(fmt.Sprintf("account_%d", i))
			_ = db.Set(pubkey, testAccount(types.Lamports(i*1000), nil, types.SystemProgramID))
		}(i)
	}

	// Concurrent reads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = db.Get(testPubkey(fmt.Sprintf("account_%d", i)))
		}(i)
	}

	wg.Wait()

	if count := db.Count(); count != 100 {
		t.Errorf("expected 100 accounts, got %d", count)
	}
}

func TestOpen(t *testing.T) {
	db, err := Open(BackendMemory, "")
	if err != nil {
		t.Fatalf("Open memory failed: %v", err)
	}
	if _, ok := db.(*MemoryDB); !ok {
		t.Errorf("expected *MemoryDB, got %T", db)
	}

	db, err = Open(BackendBadger, t.TempDir())
	if err != nil {
		t.Fatalf("Open badger failed: %v", err)
	}
	defer db.Close()
	if _, ok := db.(*BadgerDB); !ok {
		t.Errorf("expected *BadgerDB, got %T", db)
	}

	if _, err := Open("leveldb", ""); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

// Serialization

func TestSerializeAccount_Layout(t *testing.T) {
	account := testAccount(0x0102, []byte{0xaa, 0xbb}, types.MintProgramID)
	account.Executable = true
	account.RentEpoch = 3

	data, err := SerializeAccount(account)
	if err != nil {
		t.Fatalf("SerializeAccount failed: %v", err)
	}
	if len(data) != serializationMinSize+2 {
		t.Fatalf("expected %d bytes, got %d", serializationMinSize+2, len(data))
	}
	if data[0] != 0x02 || data[1] != 0x01 {
		t.Errorf("lamports not little-endian: %x", data[:8])
	}
	if data[8] != 2 {
		t.Errorf("expected data_len 2, got %d", data[8])
	}
	if !bytes.Equal(data[12:14], []byte{0xaa, 0xbb}) {
		t.Errorf("unexpected data bytes %x", data[12:14])
	}
	if !bytes.Equal(data[14:46], types.MintProgramID[:]) {
		t.Error("owner not written after data")
	}
	if data[46] != 1 {
		t.Error("executable flag not set")
	}
	if data[47] != 3 {
		t.Errorf("expected rent epoch 3, got %d", data[47])
	}
}

func TestSerializeAccount_RoundTrip(t *testing.T) {
	for _, account := range []*types.Account{
		testAccount(0, nil, types.SystemProgramID),
		testAccount(1_461_600, make([]byte, 82), types.MintProgramID),
		{Lamports: 1, Data: []byte("x"), Owner: types.SysvarRentID, Executable: true, RentEpoch: 361},
	} {
		data, err := SerializeAccount(account)
		if err != nil {
			t.Fatalf("SerializeAccount failed: %v", err)
		}
		decoded, err := DeserializeAccount(data)
		if err != nil {
			t.Fatalf("DeserializeAccount failed: %v", err)
		}
		if !decoded.Equal(account) {
			t.Errorf("round trip mismatch: %+v != %+v", decoded, account)
		}
	}
}

func TestDeserializeAccount_Malformed(t *testing.T) {
	good, _ := SerializeAccount(testAccount(1, []byte{1, 2, 3, 4}, types.SystemProgramID))

	for name, data := range map[string][]byte{
		"empty":     nil,
		"short":     good[:serializationMinSize-1],
		"truncated": good[:len(good)-1],
		"overlong":  append(append([]byte{}, good[:8]...), append([]byte{0xff, 0xff, 0xff, 0x7f}, good[12:]...)...),
	} {
		if _, err := DeserializeAccount(data); !errors.Is(err, ErrInvalidAccountData) {
			t.Errorf("%s: expected ErrInvalidAccountData, got %v", name, err)
		}
	}

	if _, err := SerializeAccount(nil); !errors.Is(err, ErrNilAccount) {
		t.Errorf("expected ErrNilAccount, got %v", err)
	}
}

// State hash

func TestStateHash_Empty(t *testing.T) {
	hash, err := StateHash(NewMemoryDB())
	if err != nil {
		t.Fatalf("StateHash failed: %v", err)
	}
	if hash != types.ZeroHash {
		t.Error("empty store should produce zero hash")
	}
}

func TestStateHash_BackendIndependent(t *testing.T) {
	stores := backends(t)
	for _, db := range stores {
		for i := 0; i < 40; i++ {
			_ = db.Set(testPubkey(fmt.Sprintf("acct_%d", i)), testAccount(types.Lamports(i), []byte{byte(i)}, types.MintProgramID))
		}
	}

	memHash, err := StateHash(stores["memory"])
	if err != nil {
		t.Fatalf("StateHash memory failed: %v", err)
	}
	badgerHash, err := StateHash(stores["badger"])
	if err != nil {
		t.Fatalf("StateHash badger failed: %v", err)
	}
	if memHash != badgerHash {
		t.Errorf("hash differs across backends: %s vs %s", memHash, badgerHash)
	}
}

func TestStateHash_DetectsChange(t *testing.T) {
	db := NewMemoryDB()
	pubkey := testPubkey("mint")
	_ = db.Set(pubkey, testAccount(1000, make([]byte, 82), types.MintProgramID))
	before, _ := StateHash(db)

	_ = db.Set(pubkey, testAccount(1000, append([]byte{1}, make([]byte, 81)...), types.MintProgramID))
	after, _ := StateHash(db)

	if before == after {
		t.Error("state hash should change when account data changes")
	}
}

func TestComputeMerkleRoot(t *testing.T) {
	leaves := make([]types.Hash, 17)
	for i := range leaves {
		leaves[i][0] = byte(i)
	}

	if computeMerkleRoot(leaves[:1]) != leaves[0] {
		t.Error("single leaf should be its own root")
	}

	level := computeNextLevel(leaves)
	if len(level) != 2 {
		t.Fatalf("17 leaves should produce 2 parents, got %d", len(level))
	}
	if level[1] != leaves[16] {
		t.Error("a lone trailing child should pass through unchanged")
	}
	if computeMerkleRoot(leaves) != hashChildren(level) {
		t.Error("root should hash the parent level")
	}
}

func BenchmarkMemoryDB_Set(b *testing.B) {
	db := NewMemoryDB()
	account := testAccount(1000, make([]byte, 128), types.SystemProgramID)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = db.Set(testPubkey(fmt.Sprintf("account_%d", i)), account)
	}
}

func BenchmarkStateHash_1000(b *testing.B) {
	db := NewMemoryDB()
	for i := 0; i < 1000; i++ {
		_ = db.Set(testPubkey(fmt.Sprintf("account_%d", i)), testAccount(types.Lamports(i), make([]byte, 82), types.MintProgramID))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = StateHash(db)
	}
}
