package labels

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestImportBytes_formats(t *testing.T) {
	tests := []struct {
		name    string
		ext     string
		content string
		want    []string
	}{
		{"json", ".json", `["Cat", " Dog ", "Human"]`, []string{"Cat", "Dog", "Human"}},
		{"plain with comments", ".txt", "# mammals\nCat\n\n  Dog  \n// birds\nSparrow\n", []string{"Cat", "Dog", "Sparrow"}},
		{"windows line endings", ".txt", "Cat\r\nDog\r\n", []string{"Cat", "Dog"}},
		{"markdown list", ".md", "# Species\n\nSome prose.\n- Cat\n* Dog\n1. Homo sapiens\n2) Oak\n", []string{"Cat", "Dog", "Homo sapiens", "Oak"}},
		{"csv first column", ".csv", "\"Canis lupus\",wolf\nFelis catus,cat\n", []string{"Canis lupus", "Felis catus"}},
		{"csv quoted comma and header", ".csv", "label,common\n\"Panthera leo, lion\",Lion\nCanis lupus,Wolf\n", []string{"Panthera leo, lion", "Canis lupus"}},
		{"csv ragged rows and comments", ".csv", "# exported\nCat\nDog,canine,extra\n\nHuman,person\n", []string{"Cat", "Dog", "Human"}},
		{"csv header only on first row", ".csv", "Cat\nname\n", []string{"Cat", "name"}},
		{"rtf paragraphs", ".rtf", `{\rtf1\ansi\pard Felis catus\par Canis lupus\par
Homo sapiens\par}`, []string{"Felis catus", "Canis lupus", "Homo sapiens"}},
		{"unknown extension is plain", ".lst", "Cat\nDog", []string{"Cat", "Dog"}},
		{"internal whitespace collapsed", ".txt", "Homo   sapiens\n", []string{"Homo sapiens"}},
	}
	im := NewImporter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := im.ImportBytes([]byte(tt.content), tt.ext)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(res.Labels, tt.want) {
				t.Errorf("Labels = %q, want %q", res.Labels, tt.want)
			}
		})
	}
}

func TestImportBytes_duplicatesKeepFirst(t *testing.T) {
	res, err := NewImporter().ImportBytes([]byte("Dog\nCat\nDog\nHuman\nCat\n"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Dog", "Cat", "Human"}; !reflect.DeepEqual(res.Labels, want) {
		t.Errorf("Labels = %q, want %q", res.Labels, want)
	}
	if want := []string{"Dog", "Cat"}; !reflect.DeepEqual(res.Duplicates, want) {
		t.Errorf("Duplicates = %q, want %q", res.Duplicates, want)
	}
}

func TestImportBytes_invalidJSON(t *testing.T) {
	if _, err := NewImporter().ImportBytes([]byte(`{"Cat": 1}`), ".json"); err == nil {
		t.Error("expected error for non-array JSON")
	}
}

func TestImportBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Cat")
	f.SetCellValue("Sheet1", "A2", "Dog")
	f.SetCellValue("Sheet1", "B3", "Human")
	f.NewSheet("Birds")
	f.SetCellValue("Birds", "A1", "Sparrow")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	res, err := NewImporter().ImportBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Cat", "Dog", "Human", "Sparrow"}; !reflect.DeepEqual(res.Labels, want) {
		t.Errorf("Labels = %q, want %q", res.Labels, want)
	}
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImportBytes_docx(t *testing.T) {
	doc := `<w:document><w:body>` +
		`<w:p w:rsidR="00A1"><w:r><w:t>Homo </w:t></w:r><w:r><w:t xml:space="preserve">sapiens</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Cat &amp; kitten</w:t></w:r></w:p>` +
		`<w:p/>` +
		`</w:body></w:document>`
	content := zipBytes(t, map[string]string{"word/document.xml": doc})
	res, err := NewImporter().ImportBytes(content, ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Homo sapiens", "Cat & kitten"}; !reflect.DeepEqual(res.Labels, want) {
		t.Errorf("Labels = %q, want %q", res.Labels, want)
	}
}

func TestImportBytes_ods(t *testing.T) {
	content := zipBytes(t, map[string]string{"content.xml": `<office:document-content><table:table>` +
		`<table:table-row><table:table-cell><text:p>Cat</text:p></table:table-cell><table:table-cell><text:p>feline</text:p></table:table-cell></table:table-row>` +
		`<table:table-row><table:table-cell/><table:table-cell><text:p><text:span>Dog</text:span></text:p></table:table-cell></table:table-row>` +
		`</table:table></office:document-content>`})
	res, err := NewImporter().ImportBytes(content, ".ods")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Cat", "Dog"}; !reflect.DeepEqual(res.Labels, want) {
		t.Errorf("Labels = %q, want %q", res.Labels, want)
	}
}

// odtBytes builds an OpenDocument text file: an uncompressed mimetype entry first, then content.xml.
func odtBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mw.Write([]byte("application/vnd.oasis.opendocument.text")); err != nil {
		t.Fatal(err)
	}
	var body strings.Builder
	body.WriteString(`<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"><office:body><office:text>`)
	for _, p := range paragraphs {
		body.WriteString("<text:p>" + p + "</text:p>")
	}
	body.WriteString(`</office:text></office:body></office:document-content>`)
	cw, err := w.Create("content.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cw.Write([]byte(body.String())); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImportBytes_odt(t *testing.T) {
	content := odtBytes(t, "Felis catus", "Canis lupus", "", "Felis catus")
	res, err := NewImporter().ImportBytes(content, ".odt")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Felis catus", "Canis lupus"}; !reflect.DeepEqual(res.Labels, want) {
		t.Errorf("Labels = %q, want %q", res.Labels, want)
	}
	if want := []string{"Felis catus"}; !reflect.DeepEqual(res.Duplicates, want) {
		t.Errorf("Duplicates = %q, want %q", res.Duplicates, want)
	}
}

func TestImport_odtAndRtfFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"species.odt": odtBytes(t, "Vulpes vulpes", "Danaus plexippus"),
		"species.rtf": []byte(`{\rtf1\ansi\deff0\pard\fs24 Vulpes vulpes\par Danaus plexippus\par}`),
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, content, 0644); err != nil {
				t.Fatal(err)
			}
			res, err := NewImporter().Import(path)
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"Vulpes vulpes", "Danaus plexippus"}; !reflect.DeepEqual(res.Labels, want) {
				t.Errorf("Labels = %q, want %q", res.Labels, want)
			}
		})
	}
}

func TestRtfParRewriteKeepsPard(t *testing.T) {
	got := string(rtfPar.ReplaceAll([]byte(`\pard A\par B\par}`), []byte(`\line$1`)))
	if want := `\pard A\line B\line}`; got != want {
		t.Errorf("rewrite = %q, want %q", got, want)
	}
}

func TestImportBytes_zipErrors(t *testing.T) {
	im := NewImporter()
	if _, err := im.ImportBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
	if _, err := im.ImportBytes(zipBytes(t, map[string]string{"other.xml": ""}), ".ods"); err == nil {
		t.Error("expected error when content.xml is missing")
	}
	if _, err := im.ImportBytes([]byte("%PDF-broken"), ".pdf"); err == nil {
		t.Error("expected error for broken PDF")
	}
}

func TestImport_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "species_labels.json")
	if err := os.WriteFile(path, []byte(`["Cat","Dog","Cat"]`), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := NewImporter().Import(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Labels) != 2 || len(res.Duplicates) != 1 {
		t.Errorf("res = %+v", res)
	}
}

func TestImport_nonexistent(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"absent.txt", "absent.odt"} {
		if _, err := NewImporter().Import(filepath.Join(dir, name)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
