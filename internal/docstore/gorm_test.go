package docstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"storesync/internal/database"
)

func TestGormStore(t *testing.T) {
	db, err := database.New(fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	storeContract(t, NewGormStore(db.DB))
}
