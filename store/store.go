// Package store accesses one offline geocoding database: a SQLite file with
// a "metadata" key/value table, an "entities" table holding the encoded
// feature collections and a "names" table with language specific overrides
// of the entity name columns.
package store

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Store is a handle to one geocoding database file.
type Store struct {
	db   *sql.DB
	path string
}

// EntityRow is the subset of an entity row needed for geometry resolution.
type EntityRow struct {
	ID           uint32
	Features     []byte
	HouseNumbers *string
}

// EntityDetails is the full entity row needed to materialize an address.
type EntityDetails struct {
	EntityRow
	Type          int
	Country       string
	Region        string
	County        string
	Locality      string
	Neighbourhood string
	Street        string
	Postcode      string
	Name          string
}

// Open opens the geocoding database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open geocoding database %s", path)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "Unable to access geocoding database %s", path)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return errors.Wrapf(s.db.Close(), "Unable to close geocoding database %s", s.path)
}

// Path returns the file path this store was opened from.
func (s *Store) Path() string {
	return s.path
}

// Metadata reads one value from the metadata table. The boolean is false
// when the key does not exist.
func (s *Store) Metadata(name string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "Unable to read metadata key '%s' from %s", name, s.path)
	}
	return value, true, nil
}

// QueryEntities runs the given entity SQL, which must select the columns
// id, features and housenumbers. The SQL text is built by the caller because
// it doubles as the geometry cache key.
func (s *Store) QueryEntities(sqlText string) ([]EntityRow, error) {
	rows, err := s.db.Query(sqlText)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to query entities from %s", s.path)
	}
	defer rows.Close()

	var entities []EntityRow
	for rows.Next() {
		var row EntityRow
		if err = rows.Scan(&row.ID, &row.Features, &row.HouseNumbers); err != nil {
			return nil, errors.Wrapf(err, "Unable to scan entity row from %s", s.path)
		}
		entities = append(entities, row)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "Unable to iterate entity rows from %s", s.path)
	}
	return entities, nil
}

// GetEntity loads the full row of one entity.
func (s *Store) GetEntity(id uint32) (EntityDetails, error) {
	var details EntityDetails
	err := s.db.QueryRow(
		"SELECT id, features, housenumbers, type, country, region, county, locality, neighbourhood, street, postcode, name FROM entities WHERE id = ?", id,
	).Scan(
		&details.ID, &details.Features, &details.HouseNumbers, &details.Type,
		&details.Country, &details.Region, &details.County, &details.Locality,
		&details.Neighbourhood, &details.Street, &details.Postcode, &details.Name,
	)
	if err != nil {
		return EntityDetails{}, errors.Wrapf(err, "Unable to load entity %d from %s", id, s.path)
	}
	return details, nil
}

// NameOverrides returns the language specific field overrides of an entity,
// keyed by field name. An unknown language yields an empty map.
func (s *Store) NameOverrides(id uint32, language string) (map[string]string, error) {
	rows, err := s.db.Query("SELECT field, value FROM names WHERE entity_id = ? AND lang = ?", id, language)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to query name overrides of entity %d from %s", id, s.path)
	}
	defer rows.Close()

	overrides := map[string]string{}
	for rows.Next() {
		var field, value string
		if err = rows.Scan(&field, &value); err != nil {
			return nil, errors.Wrapf(err, "Unable to scan name override of entity %d from %s", id, s.path)
		}
		overrides[field] = value
	}
	return overrides, errors.Wrapf(rows.Err(), "Unable to iterate name overrides of entity %d from %s", id, s.path)
}

// Exec runs a statement against the database. Used by schema bootstrap,
// fixtures and host tooling.
func (s *Store) Exec(sqlText string, args ...any) error {
	_, err := s.db.Exec(sqlText, args...)
	return errors.Wrapf(err, "Unable to execute statement against %s", s.path)
}

// Initialize creates the geocoding schema in an empty database.
func (s *Store) Initialize() error {
	statements := []string{
		"CREATE TABLE IF NOT EXISTS metadata (name TEXT PRIMARY KEY, value TEXT NOT NULL)",
		`CREATE TABLE IF NOT EXISTS entities (
			id INTEGER PRIMARY KEY,
			quadindex INTEGER NOT NULL,
			type INTEGER NOT NULL DEFAULT 0,
			features BLOB NOT NULL,
			housenumbers TEXT,
			country TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			county TEXT NOT NULL DEFAULT '',
			locality TEXT NOT NULL DEFAULT '',
			neighbourhood TEXT NOT NULL DEFAULT '',
			street TEXT NOT NULL DEFAULT '',
			postcode TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT ''
		)`,
		"CREATE INDEX IF NOT EXISTS entities_quadindex ON entities (quadindex)",
		"CREATE TABLE IF NOT EXISTS names (entity_id INTEGER NOT NULL, lang TEXT NOT NULL, field TEXT NOT NULL, value TEXT NOT NULL)",
		"CREATE INDEX IF NOT EXISTS names_entity ON names (entity_id, lang)",
	}

	for _, statement := range statements {
		if err := s.Exec(statement); err != nil {
			return err
		}
	}
	return nil
}
