package folder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// CurrentVersion is the folder schema version this build writes.
const CurrentVersion = 3

// A migration brings a folder from version-1 to its version. Each one
// is idempotent and persists the new version number as its final act,
// so an interrupted migration is safely retried from the same step.
type migration struct {
	version int
	name    string
	run     func(ctx context.Context, f *Folder) error
}

// migrationTable lists migrations in strictly ascending order. Coverage
// must be contiguous from 2 to CurrentVersion; RunMigrations checks
// this before touching the folder.
var migrationTable = []migration{
	{version: 2, name: "create shadow checkout", run: migrateShadowCheckout},
	{version: 3, name: "track remote file metadata", run: migrateRemoteFileMetadata},
}

func validateMigrationTable() error {
	want := 2
	for _, m := range migrationTable {
		if m.version != want {
			return fmt.Errorf("migration table gap: have version %d, want %d", m.version, want)
		}
		want++
	}
	if want != CurrentVersion+1 {
		return fmt.Errorf("migration table stops at %d, current version is %d", want-1, CurrentVersion)
	}
	return nil
}

// RunMigrations applies pending migrations in ascending order until the
// folder reaches CurrentVersion. A failing migration halts the run at
// the last completed version and the error propagates unchanged.
func (f *Folder) RunMigrations(ctx context.Context) error {
	if err := validateMigrationTable(); err != nil {
		return err
	}

	for f.Version() < CurrentVersion {
		next := f.Version() + 1
		m := migrationTable[next-2]

		f.Log.Infof("migration %d (%s): started", m.version, m.name)
		if err := m.run(ctx, f); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if f.Version() != m.version {
			return fmt.Errorf("migration %d (%s) did not persist its version", m.version, m.name)
		}
		f.Log.Infof("migration %d (%s): finished", m.version, m.name)
	}
	return nil
}

// migrateShadowCheckout introduces the shadow tree: a clone of the
// shared store on the tracking branch, pushed back into the store so
// the primary tree can merge it.
func migrateShadowCheckout(ctx context.Context, f *Folder) error {
	shadowDir := f.MetadataPath(shadowDirName)
	if _, err := os.Stat(shadowDir); os.IsNotExist(err) {
		shadow, err := f.store.CloneShadow(ctx, shadowDir, TrackingRef)
		if err != nil {
			return err
		}
		if err := shadow.PushRef(ctx, TrackingRef); err != nil {
			return err
		}
	}
	return f.WriteVersion(2)
}

// migrateRemoteFileMetadata introduces the attachment change-token map
// inside the shadow tree and records it in shadow history.
func migrateRemoteFileMetadata(ctx context.Context, f *Folder) error {
	p := f.ShadowPath(filepath.Join(MetadataDirName, remoteFilesName))
	if _, err := os.Stat(p); os.IsNotExist(err) {
		if err := f.SetRemoteFileMetadata(map[string]string{}); err != nil {
			return err
		}
		shadow := f.Shadow()
		if err := shadow.Stage(ctx); err != nil {
			return err
		}
		if err := shadow.Commit(ctx, "Track remote file metadata"); err != nil {
			return err
		}
		if err := shadow.PushRef(ctx, TrackingRef); err != nil {
			return err
		}
	}
	return f.WriteVersion(3)
}
