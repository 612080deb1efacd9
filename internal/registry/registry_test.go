package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexTOML = `[packages.etl-toolkit]
description = "Skills for warehouse ingestion"
author = "dataeng"
url = "URL_PLACEHOLDER"
version = "1.2.0"
tags = ["etl", "csv"]
modules = 4

[packages.web-scraping]
description = "Crawling and extraction expertise"
version = "0.9.0"
tags = ["http", "html"]
`

func TestFetchIndex_ParsesAndDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexTOML))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	packages, err := client.FetchIndex(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 2)

	// Sorted by name.
	assert.Equal(t, "etl-toolkit", packages[0].Name)
	assert.Equal(t, "web-scraping", packages[1].Name)

	assert.Equal(t, "dataeng", packages[0].Author)
	assert.Equal(t, "1.2.0", packages[0].Version)
	assert.Equal(t, 4, packages[0].Modules)

	// Missing author and version fall back to placeholders.
	assert.Equal(t, "unknown", packages[1].Author)
	assert.Equal(t, "0.9.0", packages[1].Version)
}

func TestFetchIndex_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).FetchIndex(context.Background())
	assert.ErrorContains(t, err, "could not fetch registry")
}

func TestFetchIndex_BadTOML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not = [valid"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).FetchIndex(context.Background())
	assert.ErrorContains(t, err, "parsing registry index")
}

func TestSearch_ScoresNameOverDescriptionOverTags(t *testing.T) {
	packages := []Package{
		{Name: "csv-tools", Description: "misc", Tags: []string{"etl"}},
		{Name: "warehouse", Description: "csv ingestion helpers"},
		{Name: "scraping", Tags: []string{"csv"}},
		{Name: "unrelated", Description: "nothing here"},
	}

	results := Search("csv", packages)
	require.Len(t, results, 3)
	assert.Equal(t, "csv-tools", results[0].Name)
	assert.Equal(t, "warehouse", results[1].Name)
	assert.Equal(t, "scraping", results[2].Name)
}

func TestSearch_CaseInsensitive(t *testing.T) {
	packages := []Package{{Name: "CSV-Tools"}}
	assert.Len(t, Search("csv", packages), 1)
}

func TestSearch_NoMatches(t *testing.T) {
	packages := []Package{{Name: "scraping"}}
	assert.Empty(t, Search("genomics", packages))
}

func TestDownload_SavesArchive(t *testing.T) {
	payload := []byte("fake archive bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient(server.URL)
	path, err := client.Download(context.Background(),
		Package{Name: "etl-toolkit", URL: server.URL}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "etl-toolkit.stato"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownload_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Download(context.Background(),
		Package{Name: "missing", URL: server.URL}, t.TempDir())
	assert.ErrorContains(t, err, "could not download missing")
}
