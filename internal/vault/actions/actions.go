// Package actions maps the fixed set of vault operations onto the service.
// Callers pick an Action from a closed enum and fill a Request; Dispatcher
// runs it and returns a Result. There is no string-keyed callback table.
package actions

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"github.com/dmitrijs2005/vaultcore/internal/cryptox"
	"github.com/dmitrijs2005/vaultcore/internal/pagex"
	"github.com/dmitrijs2005/vaultcore/internal/vault/models"
	"github.com/dmitrijs2005/vaultcore/internal/vault/services"
)

type Action int

const (
	Provision Action = iota + 1
	Verify
	CreateRecord
	UpdateRecord
	ListServices
	ListRecords
	RevealRecords
	RenameService
	DeleteRecord
	DeleteService
	DeleteAll
	SearchServices
	Export
	Import
	Rotate
)

var names = map[Action]string{
	Provision:      "provision",
	Verify:         "verify",
	CreateRecord:   "add",
	UpdateRecord:   "update",
	ListServices:   "services",
	ListRecords:    "records",
	RevealRecords:  "reveal",
	RenameService:  "rename",
	DeleteRecord:   "delete",
	DeleteService:  "delete-service",
	DeleteAll:      "delete-all",
	SearchServices: "search",
	Export:         "export",
	Import:         "import",
	Rotate:         "rotate",
}

func (a Action) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction resolves a command name to its Action.
func ParseAction(name string) (Action, error) {
	for a, n := range names {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", common.ErrUnknownAction, name)
}

// All lists every action in declaration order.
func All() []Action {
	out := make([]Action, 0, len(names))
	for a := Provision; a <= Rotate; a++ {
		out = append(out, a)
	}
	return out
}

// NeedsKey reports whether the action works on plaintext and therefore
// needs the master secret.
func (a Action) NeedsKey() bool {
	switch a {
	case Verify, CreateRecord, UpdateRecord, RevealRecords, Export, Import:
		return true
	}
	return false
}

// Request carries the inputs of one action. Only the fields the action uses
// are read.
type Request struct {
	UserID     int64
	Service    string
	NewService string
	Login      string
	Password   string
	Ciphertext []byte
	Query      string
	Offset     int
	Limit      int

	// Key unlocks plaintext. Rotate uses Key as the old key and NewKey as
	// the new one.
	Key    *cryptox.Key
	NewKey *cryptox.Key

	// In feeds Import; Out receives Export.
	In  io.Reader
	Out io.Writer
}

// Result is the union of action outputs; which fields are set depends on the
// action.
type Result struct {
	Verification services.Verification
	Record       *models.Record
	Services     pagex.Page[string]
	Records      pagex.Page[*models.Record]
	Revealed     pagex.Page[services.Revealed]
	Matches      []string
	Count        int64
	Import       services.ImportReport
}

// Dispatcher runs actions against a VaultService.
type Dispatcher struct {
	svc *services.VaultService
}

func NewDispatcher(svc *services.VaultService) *Dispatcher {
	return &Dispatcher{svc: svc}
}

func (d *Dispatcher) Execute(ctx context.Context, a Action, req Request) (*Result, error) {
	if a.NeedsKey() && req.Key == nil {
		return nil, fmt.Errorf("%w: %s needs a key", common.ErrInvalidInput, a)
	}

	res := &Result{}
	var err error

	switch a {
	case Provision:
		_, err = d.svc.Provision(ctx, req.UserID)
	case Verify:
		res.Verification, err = d.svc.VerifyKey(ctx, req.UserID, req.Key)
	case CreateRecord:
		res.Record, err = d.svc.CreateRecord(ctx, req.UserID, req.Service, req.Login, req.Password, req.Key)
	case UpdateRecord:
		res.Record, err = d.svc.UpdateRecord(ctx, req.UserID, req.Service, req.Ciphertext, req.Login, req.Password, req.Key)
	case ListServices:
		res.Services, err = d.svc.ListServices(ctx, req.UserID, req.Offset, req.Limit)
	case ListRecords:
		res.Records, err = d.svc.ListRecords(ctx, req.UserID, req.Service, req.Offset, req.Limit)
	case RevealRecords:
		res.Revealed, err = d.svc.RevealRecords(ctx, req.UserID, req.Service, req.Offset, req.Limit, req.Key)
	case RenameService:
		res.Count, err = d.svc.RenameService(ctx, req.UserID, req.Service, req.NewService)
	case DeleteRecord:
		err = d.svc.DeleteRecord(ctx, req.UserID, req.Service, req.Ciphertext)
		if err == nil {
			res.Count = 1
		}
	case DeleteService:
		res.Count, err = d.svc.DeleteService(ctx, req.UserID, req.Service)
	case DeleteAll:
		res.Count, err = d.svc.DeleteAll(ctx, req.UserID)
	case SearchServices:
		res.Matches, err = d.svc.SearchServices(ctx, req.UserID, req.Query)
	case Export:
		if req.Out == nil {
			return nil, fmt.Errorf("%w: export needs output", common.ErrInvalidInput)
		}
		var n int
		n, err = d.svc.WriteExport(ctx, req.UserID, req.Key, req.Out)
		res.Count = int64(n)
	case Import:
		if req.In == nil {
			return nil, fmt.Errorf("%w: import needs input", common.ErrInvalidInput)
		}
		res.Import, err = d.svc.ImportCSV(ctx, req.UserID, req.In, req.Key)
		res.Count = int64(res.Import.Imported)
	case Rotate:
		if req.Key == nil || req.NewKey == nil {
			return nil, fmt.Errorf("%w: rotate needs old and new keys", common.ErrInvalidInput)
		}
		var n int
		n, err = d.svc.RotateMasterPassword(ctx, req.UserID, req.Key, req.NewKey)
		res.Count = int64(n)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownAction, a)
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}
