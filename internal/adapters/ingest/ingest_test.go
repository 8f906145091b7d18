package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func xlsxFixture(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestValidateSize(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		err := ValidateSize(filepath.Join(t.TempDir(), "nope.csv"), 10)
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "big.csv", bytes.Repeat([]byte("x"), 2048))
		err := ValidateSize(path, 1024)
		require.ErrorIs(t, err, ErrFileTooLarge)
		assert.Contains(t, err.Error(), "0MB")
	})

	t.Run("limit message in megabytes", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "big.csv", bytes.Repeat([]byte("x"), 64))
		err := ValidateSize(path, 5<<20)
		assert.NoError(t, err)
		assert.EqualError(t, checkSize(6<<20, 5<<20), "file size exceeds maximum limit of 5MB")
	})
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	t.Run("strips BOM and trims fields", func(t *testing.T) {
		t.Parallel()
		in := "\ufeffEmail , Name\n a@b.com ,  Jo \n\n c@d.com,Al\n"
		table, err := ReadCSV(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []string{"Email", "Name"}, table.Headers)
		assert.Equal(t, [][]string{{"a@b.com", "Jo"}, {"c@d.com", "Al"}}, table.Rows)
	})

	t.Run("ragged rows allowed", func(t *testing.T) {
		t.Parallel()
		table, err := ReadCSV(strings.NewReader("email,name,company\na@b.com\n"))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a@b.com"}}, table.Rows)
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()
		_, err := ReadCSV(strings.NewReader("email,name\n\n\n"))
		assert.ErrorIs(t, err, ErrInsufficientRows)
	})

	t.Run("whitespace-only lines skipped", func(t *testing.T) {
		t.Parallel()
		table, err := ReadCSV(strings.NewReader("email,name\n   \na@b.com,X\n\t\n"))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a@b.com", "X"}}, table.Rows)
	})

	t.Run("header and whitespace line only", func(t *testing.T) {
		t.Parallel()
		_, err := ReadCSV(strings.NewReader("email,name\n \t \n"))
		assert.ErrorIs(t, err, ErrInsufficientRows)
	})

	t.Run("separator-only line kept as empty row", func(t *testing.T) {
		t.Parallel()
		table, err := ReadCSV(strings.NewReader("email,name\n , \na@b.com,X\n"))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"", ""}, {"a@b.com", "X"}}, table.Rows)
	})

	t.Run("quoted commas", func(t *testing.T) {
		t.Parallel()
		table, err := ReadCSV(strings.NewReader("email,company\na@b.com,\"Acme, Inc\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "Acme, Inc", table.Rows[0][1])
	})
}

func TestReadXLSX(t *testing.T) {
	t.Parallel()

	t.Run("first sheet, trailing blanks dropped", func(t *testing.T) {
		t.Parallel()
		data := xlsxFixture(t, [][]any{
			{"Email", "First Name", "Company"},
			{"jo@acme.com", "Jo"},
			{"al@beta.io", "Al", "Beta"},
			{"", "", ""},
		})
		table, err := ReadXLSX(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"Email", "First Name", "Company"}, table.Headers)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, []string{"jo@acme.com", "Jo", ""}, table.Rows[0])
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()
		data := xlsxFixture(t, [][]any{{"Email"}})
		_, err := ReadXLSX(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInsufficientRows)
	})
}

func TestReadXLS(t *testing.T) {
	t.Parallel()

	t.Run("first sheet, ragged rows padded, trailing blanks dropped", func(t *testing.T) {
		t.Parallel()
		f, err := os.Open(filepath.Join("testdata", "leads.xls"))
		require.NoError(t, err)
		defer f.Close()

		table, err := ReadXLS(f)
		require.NoError(t, err)
		assert.Equal(t, []string{"Email", "First Name", "Company"}, table.Headers)
		assert.Equal(t, [][]string{
			{"jo@acme.com", "Jo", "Acme"},
			{"sam@gamma.io", "Sam", ""},
		}, table.Rows)
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()
		f, err := os.Open(filepath.Join("testdata", "header_only.xls"))
		require.NoError(t, err)
		defer f.Close()

		_, err = ReadXLS(f)
		assert.ErrorIs(t, err, ErrInsufficientRows)
	})

	t.Run("not a workbook", func(t *testing.T) {
		t.Parallel()
		_, err := ReadXLS(bytes.NewReader([]byte("email\na@b.com\n")))
		assert.Error(t, err)
	})
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	t.Run("selects by extension case-insensitively", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "LEADS.CSV", []byte("email\na@b.com\n"))
		table, err := ReadFile(path, DefaultMaxFileSize)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 1)
	})

	t.Run("xlsx on disk", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "leads.xlsx", xlsxFixture(t, [][]any{{"email"}, {"a@b.com"}}))
		table, err := ReadFile(path, DefaultMaxFileSize)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a@b.com"}}, table.Rows)
	})

	t.Run("xls on disk", func(t *testing.T) {
		t.Parallel()
		table, err := ReadFile(filepath.Join("testdata", "leads.xls"), DefaultMaxFileSize)
		require.NoError(t, err)
		assert.Equal(t, "Email", table.Headers[0])
		assert.Len(t, table.Rows, 2)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "leads.txt", []byte("email\na@b.com\n"))
		_, err := ReadFile(path, DefaultMaxFileSize)
		assert.ErrorIs(t, err, ErrUnsupportedExtension)
	})

	t.Run("size checked before parsing", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "leads.csv", []byte("email\na@b.com\n"))
		_, err := ReadFile(path, 4)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFile(filepath.Join(t.TempDir(), "gone.xlsx"), DefaultMaxFileSize)
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}

func TestReadSource(t *testing.T) {
	t.Parallel()

	table, err := ReadSource("upload.csv", bytes.NewReader([]byte("email\na@b.com\n")), 1024)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	_, err = ReadSource("upload.csv", bytes.NewReader(bytes.Repeat([]byte("x"), 100)), 10)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = ReadSource("upload.pdf", bytes.NewReader(nil), 10)
	assert.ErrorIs(t, err, ErrUnsupportedExtension)
}

func TestRectangular(t *testing.T) {
	t.Parallel()

	got := rectangular([][]string{{"a", "b", "c"}, {"d"}, {}, {"e"}, {" ", ""}, nil})
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d", "", ""}, {"", "", ""}, {"e", "", ""}}, got)
}
