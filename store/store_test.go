package store

import (
	"path/filepath"
	"testing"

	"revgeo/util"
)

func newTestStore(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	util.AssertNil(t, err)
	util.AssertNil(t, s.Initialize())

	t.Cleanup(func() {
		util.AssertNil(t, s.Close())
	})
	return s
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	err := s.Exec("INSERT INTO metadata (name, value) VALUES ('origin', '12.5,50.25')")
	util.AssertNil(t, err)

	value, ok, err := s.Metadata("origin")
	util.AssertNil(t, err)
	util.AssertTrue(t, ok)
	util.AssertEqual(t, "12.5,50.25", value)

	_, ok, err = s.Metadata("bounds")
	util.AssertNil(t, err)
	util.AssertFalse(t, ok)
}

func TestQueryEntities(t *testing.T) {
	s := newTestStore(t)

	err := s.Exec("INSERT INTO entities (id, quadindex, type, features, housenumbers, street) VALUES (1, 42, 7, ?, NULL, 'Main Street')", []byte{1, 2, 3})
	util.AssertNil(t, err)
	err = s.Exec("INSERT INTO entities (id, quadindex, type, features, housenumbers) VALUES (2, 42, 9, ?, '2|4|6')", []byte{4, 5})
	util.AssertNil(t, err)
	err = s.Exec("INSERT INTO entities (id, quadindex, type, features) VALUES (3, 99, 7, ?)", []byte{6})
	util.AssertNil(t, err)

	rows, err := s.QueryEntities("SELECT id, features, housenumbers FROM entities WHERE quadindex IN (42)")
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(rows))

	util.AssertEqual(t, uint32(1), rows[0].ID)
	util.AssertEqual(t, []byte{1, 2, 3}, rows[0].Features)
	util.AssertNil(t, rows[0].HouseNumbers)

	util.AssertEqual(t, uint32(2), rows[1].ID)
	util.AssertNotNil(t, rows[1].HouseNumbers)
	util.AssertEqual(t, "2|4|6", *rows[1].HouseNumbers)
}

func TestQueryEntities_brokenSql(t *testing.T) {
	s := newTestStore(t)

	_, err := s.QueryEntities("SELECT id FROM no_such_table")
	util.AssertNotNil(t, err)
}

func TestGetEntity(t *testing.T) {
	s := newTestStore(t)

	err := s.Exec("INSERT INTO entities (id, quadindex, type, features, street, locality, country) VALUES (5, 1, 7, ?, 'Main Street', 'Springfield', 'USA')", []byte{9})
	util.AssertNil(t, err)

	details, err := s.GetEntity(5)
	util.AssertNil(t, err)
	util.AssertEqual(t, uint32(5), details.ID)
	util.AssertEqual(t, 7, details.Type)
	util.AssertEqual(t, "Main Street", details.Street)
	util.AssertEqual(t, "Springfield", details.Locality)
	util.AssertEqual(t, "USA", details.Country)
	util.AssertEqual(t, "", details.Postcode)

	_, err = s.GetEntity(99)
	util.AssertNotNil(t, err)
}

func TestNameOverrides(t *testing.T) {
	s := newTestStore(t)

	err := s.Exec("INSERT INTO names (entity_id, lang, field, value) VALUES (5, 'de', 'street', 'Hauptstraße')")
	util.AssertNil(t, err)
	err = s.Exec("INSERT INTO names (entity_id, lang, field, value) VALUES (5, 'de', 'country', 'Deutschland')")
	util.AssertNil(t, err)

	overrides, err := s.NameOverrides(5, "de")
	util.AssertNil(t, err)
	util.AssertEqual(t, map[string]string{"street": "Hauptstraße", "country": "Deutschland"}, overrides)

	overrides, err = s.NameOverrides(5, "fr")
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(overrides))
}
