package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/code-payments/todo-server/pkg/database/query"
	"github.com/code-payments/todo-server/pkg/ledger"
)

type store struct {
	mu         sync.Mutex
	records    []*ledger.Account
	signatures map[string]struct{}
	last       uint64
}

type ById []*ledger.Account

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

func New() ledger.Store {
	return &store{
		records:    make([]*ledger.Account, 0),
		signatures: make(map[string]struct{}),
		last:       0,
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make([]*ledger.Account, 0)
	s.signatures = make(map[string]struct{})
	s.last = 0
	s.mu.Unlock()
}

func (s *store) findAddress(address string) *ledger.Account {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}
	return nil
}

func (s *store) findByOwner(owner string, dataPrefix []byte) []*ledger.Account {
	res := make([]*ledger.Account, 0)
	for _, item := range s.records {
		if item.Owner != owner {
			continue
		}

		if !item.HasDataPrefix(dataPrefix) {
			continue
		}

		res = append(res, item)
	}
	return res
}

func (s *store) filter(items []*ledger.Account, cursor query.Cursor, limit uint64, direction query.Ordering) []*ledger.Account {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*ledger.Account
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if limit > 0 && len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) Get(_ context.Context, address string) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findAddress(address); item != nil {
		cloned := item.Clone()
		return &cloned, nil
	}

	return nil, ledger.ErrAccountNotFound
}

func (s *store) GetAllByOwner(_ context.Context, owner string, dataPrefix []byte, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if items := s.findByOwner(owner, dataPrefix); len(items) > 0 {
		res := s.filter(items, cursor, limit, direction)

		if len(res) == 0 {
			return nil, ledger.ErrAccountNotFound
		}

		return clonedRecords(res), nil
	}

	return nil, ledger.ErrAccountNotFound
}

func (s *store) CountByOwner(_ context.Context, owner string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.findByOwner(owner, nil))), nil
}

func (s *store) Commit(_ context.Context, changes *ledger.ChangeSet) error {
	if err := changes.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every precondition before mutating anything
	if _, ok := s.signatures[changes.Signature]; ok {
		return ledger.ErrDuplicateSignature
	}
	for _, account := range changes.Created {
		if s.findAddress(account.Address) != nil {
			return ledger.ErrStaleAccount
		}
	}
	for _, group := range [][]*ledger.Account{changes.Updated, changes.Deleted} {
		for _, account := range group {
			item := s.findAddress(account.Address)
			if item == nil || item.Version != account.Version {
				return ledger.ErrStaleAccount
			}
		}
	}

	s.signatures[changes.Signature] = struct{}{}

	for _, account := range changes.Created {
		s.last++

		account.Id = s.last
		account.Version = 1

		cloned := account.Clone()
		s.records = append(s.records, &cloned)
	}

	for _, account := range changes.Updated {
		item := s.findAddress(account.Address)

		account.Id = item.Id
		account.Version++

		cloned := account.Clone()
		item.Owner = cloned.Owner
		item.Lamports = cloned.Lamports
		item.Data = cloned.Data
		item.Version = cloned.Version
	}

	for _, account := range changes.Deleted {
		for i, item := range s.records {
			if item.Address == account.Address {
				s.records = append(s.records[:i], s.records[i+1:]...)
				break
			}
		}
	}

	return nil
}

func clonedRecords(items []*ledger.Account) []*ledger.Account {
	res := make([]*ledger.Account, len(items))
	for i, item := range items {
		cloned := item.Clone()
		res[i] = &cloned
	}
	return res
}
