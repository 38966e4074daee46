package masterdata

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Stage is one playable stage.
type Stage struct {
	ID      int    `mapstructure:"id" yaml:"id" json:"id"`
	Name    string `mapstructure:"name" yaml:"name" json:"name"`
	Chapter int    `mapstructure:"chapter" yaml:"chapter" json:"chapter"`
	Scene   string `mapstructure:"scene" yaml:"scene" json:"scene"`
	BGM     string `mapstructure:"bgm" yaml:"bgm" json:"bgm"`
}

// Enemy is one enemy spawn definition.
type Enemy struct {
	ID      int    `mapstructure:"id" yaml:"id" json:"id"`
	Name    string `mapstructure:"name" yaml:"name" json:"name"`
	StageID int    `mapstructure:"stage_id" yaml:"stage_id" json:"stage_id"`
	HP      int    `mapstructure:"hp" yaml:"hp" json:"hp"`
	Attack  int    `mapstructure:"attack" yaml:"attack" json:"attack"`
}

// Table names inside a Snapshot.
const (
	TableStages  = "stages"
	TableEnemies = "enemies"
)

// Snapshot is the raw serialized form: table name -> rows of loosely typed fields.
type Snapshot map[string][]map[string]any

// Database is the immutable, fully indexed master data. Safe for concurrent reads.
type Database struct {
	stages          *Table[int, Stage]
	stagesByChapter *Index[int, Stage]
	enemies         *Table[int, Enemy]
	enemiesByStage  *Index[int, Enemy]
}

// Build decodes a snapshot and constructs every index up front.
func Build(raw Snapshot) (*Database, error) {
	stages, err := decodeRows[Stage](TableStages, raw[TableStages])
	if err != nil {
		return nil, err
	}
	enemies, err := decodeRows[Enemy](TableEnemies, raw[TableEnemies])
	if err != nil {
		return nil, err
	}

	db := &Database{
		stagesByChapter: NewIndex(stages, func(s Stage) int { return s.Chapter }),
		enemiesByStage:  NewIndex(enemies, func(e Enemy) int { return e.StageID }),
	}
	if db.stages, err = NewTable(TableStages, stages, func(s Stage) int { return s.ID }); err != nil {
		return nil, err
	}
	if db.enemies, err = NewTable(TableEnemies, enemies, func(e Enemy) int { return e.ID }); err != nil {
		return nil, err
	}
	return db, nil
}

// LoadFile reads a YAML snapshot from disk.
func LoadFile(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read master data: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) snapshot.
func Parse(data []byte) (*Database, error) {
	var raw Snapshot
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse master data: %w", err)
	}
	return Build(raw)
}

func decodeRows[V any](table string, rows []map[string]any) ([]V, error) {
	out := make([]V, 0, len(rows))
	for i, row := range rows {
		var v V
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &v,
			WeaklyTypedInput: true,
			ErrorUnused:      false,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(row); err != nil {
			return nil, fmt.Errorf("table %s row %d: %w", table, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Stage finds a stage by id.
func (db *Database) Stage(id int) (Stage, bool) { return db.stages.Find(id) }

// StagesByChapter lists the stages of a chapter in load order.
func (db *Database) StagesByChapter(chapter int) []Stage { return db.stagesByChapter.Find(chapter) }

// Enemy finds an enemy by id.
func (db *Database) Enemy(id int) (Enemy, bool) { return db.enemies.Find(id) }

// EnemiesByStage lists the enemies spawned in a stage.
func (db *Database) EnemiesByStage(stageID int) []Enemy { return db.enemiesByStage.Find(stageID) }

// Stages returns every stage.
func (db *Database) Stages() []Stage { return db.stages.All() }
