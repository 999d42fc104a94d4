package convert

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

var pngHead = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}

func isCY(ext string) bool { return ext == ".cy" }

func writeZip(t *testing.T, path string, entries ...[2]string) {
	t.Helper()
	zipFile, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		f, err := w.CreateHeader(&zip.FileHeader{Name: e[0], Method: zip.Deflate})
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		if _, err := io.WriteString(f, e[1]); err != nil {
			t.Fatalf("Failed to write to zip: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
}

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip extension", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.cy")
		if err := os.WriteFile(filePath, []byte("# not a zip"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "fake.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("valid zip file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "real.ZIP")
		writeZip(t, filePath, [2]string{"a.cy", "# a"})
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("isArchiveFile() = false, want true")
		}
	})

	t.Run("nonexistent", func(t *testing.T) {
		if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
			t.Error("Expected error for non-existent file, got nil")
		}
	})
}

func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{"UTF-8 BOM", []byte{0xEF, 0xBB, 0xBF, 0x00}, encUTF8},
		{"UTF-16 Big Endian BOM", []byte{0xFE, 0xFF, 0x00, 0x00}, encUTF16BigEndian},
		{"UTF-16 Little Endian BOM", []byte{0xFF, 0xFE, 0x01, 0x00}, encUTF16LittleEndian},
		{"UTF-32 Big Endian BOM", []byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{"UTF-32 Little Endian BOM", []byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{"No BOM", []byte("# heading"), encUnknown},
		{"short", []byte{0xFF}, encUnknown},
		{"empty", nil, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyHead(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		wantText bool
		wantEnc  srcEncoding
	}{
		{"plain markup", []byte("# Title\n* item\n"), true, encUnknown},
		{"empty", nil, true, encUnknown},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "# Title"...), true, encUTF8},
		{"utf-16 with bom has zeros", []byte{0xFF, 0xFE, '#', 0x00, ' ', 0x00}, true, encUTF16LittleEndian},
		{"png image", pngHead, false, encUnknown},
		{"zero bytes", []byte("abc\x00def"), false, encUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotText, gotEnc := classifyHead(tt.head)
			if gotText != tt.wantText || gotEnc != tt.wantEnc {
				t.Errorf("classifyHead() = %v, %v; want %v, %v", gotText, gotEnc, tt.wantText, tt.wantEnc)
			}
		})
	}
}

func TestIsSourceFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantText bool
		wantEnc  srcEncoding
	}{
		{"markup", "doc.cy", []byte("# doc"), true, encUnknown},
		{"markup with BOM", "bom.cy", []byte("\xEF\xBB\xBF# doc"), true, encUTF8},
		{"other extension", "doc.md", []byte("# doc"), false, encUnknown},
		{"binary with source extension", "image.cy", pngHead, false, encUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.filename)
			if err := os.WriteFile(filePath, tt.content, 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}
			gotText, gotEnc, err := isSourceFile(filePath, isCY)
			if err != nil {
				t.Fatalf("isSourceFile() error = %v", err)
			}
			if gotText != tt.wantText || gotEnc != tt.wantEnc {
				t.Errorf("isSourceFile() = %v, %v; want %v, %v", gotText, gotEnc, tt.wantText, tt.wantEnc)
			}
		})
	}

	t.Run("nonexistent", func(t *testing.T) {
		if _, _, err := isSourceFile("/nonexistent/file.cy", isCY); err == nil {
			t.Error("Expected error for non-existent file, got nil")
		}
	})
}

func TestIsSourceInArchive(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	writeZip(t, zipPath,
		[2]string{"doc.cy", "# doc"},
		[2]string{"doc.txt", "# doc"},
		[2]string{"bom.cy", "\xEF\xBB\xBF# doc"},
		[2]string{"image.cy", string(pngHead)},
	)

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	defer r.Close()

	want := []struct {
		text bool
		enc  srcEncoding
	}{
		{true, encUnknown},
		{false, encUnknown},
		{true, encUTF8},
		{false, encUnknown},
	}
	for i, f := range r.File {
		gotText, gotEnc, err := isSourceInArchive(f, isCY)
		if err != nil {
			t.Errorf("isSourceInArchive(%s) error = %v", f.Name, err)
			continue
		}
		if gotText != want[i].text || gotEnc != want[i].enc {
			t.Errorf("isSourceInArchive(%s) = %v, %v; want %v, %v", f.Name, gotText, gotEnc, want[i].text, want[i].enc)
		}
	}
}

func encodeWithTransformer(t *testing.T, data []byte, encoder transform.Transformer) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, encoder)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("finalize encoded sample: %v", err)
	}
	return buf.Bytes()
}

func TestSelectReader(t *testing.T) {
	const text = "# Заголовок\n* пункт ✓\n"

	tests := []struct {
		name    string
		enc     srcEncoding
		encoded []byte
	}{
		{"no BOM", encUnknown, []byte(text)},
		{"utf-8", encUTF8, append([]byte{0xEF, 0xBB, 0xBF}, text...)},
		{"utf-16 be", encUTF16BigEndian,
			encodeWithTransformer(t, []byte(text), unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder())},
		{"utf-16 le", encUTF16LittleEndian,
			encodeWithTransformer(t, []byte(text), unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder())},
		{"utf-32 be", encUTF32BigEndian,
			encodeWithTransformer(t, []byte(text), utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewEncoder())},
		{"utf-32 le", encUTF32LittleEndian,
			encodeWithTransformer(t, []byte(text), utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewEncoder())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.encoded); got != tt.enc {
				t.Fatalf("detectUTF() = %v, want %v", got, tt.enc)
			}
			data, err := io.ReadAll(selectReader(bytes.NewReader(tt.encoded), tt.enc))
			if err != nil {
				t.Fatalf("read error = %v", err)
			}
			if string(data) != text {
				t.Errorf("decoded = %q, want %q", data, text)
			}
		})
	}
}

func TestSelectReader_StreamBOM(t *testing.T) {
	// stdin is read without detection, BOM override still applies
	encoded := encodeWithTransformer(t, []byte("* a"), unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder())
	data, err := io.ReadAll(selectReader(bytes.NewReader(encoded), encUnknown))
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if string(data) != "* a" {
		t.Errorf("decoded = %q, want %q", data, "* a")
	}
}

func TestSelectReader_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for invalid encoding, but didn't panic")
		}
	}()
	selectReader(bytes.NewReader([]byte("test")), srcEncoding(999))
}
