package ports

import "github.com/aretw0/scenestack/pkg/masterdata"

// MasterData is the read-only query surface over the master-data snapshot.
// It is loaded once at startup and treated as immutable for the session.
type MasterData interface {
	Stage(id int) (masterdata.Stage, bool)
	StagesByChapter(chapter int) []masterdata.Stage
	Enemy(id int) (masterdata.Enemy, bool)
	EnemiesByStage(stageID int) []masterdata.Enemy
}

var _ MasterData = (*masterdata.Database)(nil)
