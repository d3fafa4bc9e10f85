package core

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FormatID enumerates every recognised format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtGIF  FormatID = "gif"
	FmtWebP FormatID = "webp"
	FmtTIFF FormatID = "tiff"
	FmtBMP  FormatID = "bmp"
	FmtSVG  FormatID = "svg"
	FmtHEIC FormatID = "heic"

	FmtMP3  FormatID = "mp3"
	FmtFLAC FormatID = "flac"
	FmtM4A  FormatID = "m4a"
	FmtWAV  FormatID = "wav"
	FmtOGG  FormatID = "ogg"
	FmtOpus FormatID = "opus"
	FmtAIFF FormatID = "aiff"

	FmtMP4  FormatID = "mp4"
	FmtMOV  FormatID = "mov"
	FmtMKV  FormatID = "mkv"
	FmtWebM FormatID = "webm"
	FmtAVI  FormatID = "avi"
	FmtWMV  FormatID = "wmv"
	FmtFLV  FormatID = "flv"

	FmtPDF  FormatID = "pdf"
	FmtDOCX FormatID = "docx"
	FmtXLSX FormatID = "xlsx"
	FmtPPTX FormatID = "pptx"
	FmtODT  FormatID = "odt"
	FmtRTF  FormatID = "rtf"
	FmtEPUB FormatID = "epub"

	FmtZIP FormatID = "zip"

	FmtUnknown FormatID = "unknown"
)

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".png":  FmtPNG,
	".gif":  FmtGIF,
	".webp": FmtWebP,
	".tiff": FmtTIFF,
	".tif":  FmtTIFF,
	".bmp":  FmtBMP,
	".svg":  FmtSVG,
	".heic": FmtHEIC,
	".heif": FmtHEIC,

	".mp3":  FmtMP3,
	".flac": FmtFLAC,
	".m4a":  FmtM4A,
	".m4b":  FmtM4A,
	".wav":  FmtWAV,
	".wave": FmtWAV,
	".ogg":  FmtOGG,
	".oga":  FmtOGG,
	".opus": FmtOpus,
	".aif":  FmtAIFF,
	".aiff": FmtAIFF,
	".aifc": FmtAIFF,

	".mp4":  FmtMP4,
	".m4v":  FmtMP4,
	".mov":  FmtMOV,
	".qt":   FmtMOV,
	".mkv":  FmtMKV,
	".mka":  FmtMKV,
	".webm": FmtWebM,
	".avi":  FmtAVI,
	".wmv":  FmtWMV,
	".wma":  FmtWMV,
	".asf":  FmtWMV,
	".flv":  FmtFLV,

	".pdf":  FmtPDF,
	".docx": FmtDOCX,
	".docm": FmtDOCX,
	".xlsx": FmtXLSX,
	".xlsm": FmtXLSX,
	".pptx": FmtPPTX,
	".pptm": FmtPPTX,
	".odt":  FmtODT,
	".ods":  FmtODT,
	".odp":  FmtODT,
	".rtf":  FmtRTF,
	".epub": FmtEPUB,

	".zip": FmtZIP,
}

// FormatForExt returns the FormatID registered for an extension such as
// ".JPG" or "jpg".
func FormatForExt(ext string) FormatID {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	if id, ok := extMap[ext]; ok {
		return id
	}
	return FmtUnknown
}

// DetectFormat returns the FormatID for the given file. The extension wins
// when it is known; otherwise the magic bytes decide.
func DetectFormat(path string) (FormatID, error) {
	if id := FormatForExt(filepath.Ext(path)); id != FmtUnknown {
		return id, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 64)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FmtUnknown, err
	}
	return detectMagic(buf[:n]), nil
}

func detectMagic(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FmtPNG
	// GIF: GIF87a or GIF89a
	case bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a")):
		return FmtGIF
	// WebP: RIFF????WEBP
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FmtWebP
	// WAV: RIFF????WAVE
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return FmtWAV
	// TIFF: 49 49 2A 00 (little-endian) or 4D 4D 00 2A (big-endian)
	case bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) ||
		bytes.HasPrefix(b, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FmtTIFF
	// BMP: 42 4D
	case b[0] == 0x42 && b[1] == 0x4D:
		return FmtBMP
	// MP3: ID3 tag or frame sync
	case bytes.HasPrefix(b, []byte("ID3")):
		return FmtMP3
	case b[0] == 0xFF && (b[1]&0xE0 == 0xE0):
		return FmtMP3
	case bytes.HasPrefix(b, []byte("fLaC")):
		return FmtFLAC
	// Ogg: the first page carries the codec's identification header
	case bytes.HasPrefix(b, []byte("OggS")):
		if bytes.Contains(b, []byte("OpusHead")) {
			return FmtOpus
		}
		return FmtOGG
	// AIFF: FORM????AIFF or AIFC
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("FORM")) &&
		(bytes.Equal(b[8:12], []byte("AIFF")) || bytes.Equal(b[8:12], []byte("AIFC"))):
		return FmtAIFF
	// AVI: RIFF????AVI
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("AVI ")):
		return FmtAVI
	// Matroska/WebM: EBML header 1A 45 DF A3
	case bytes.HasPrefix(b, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		if bytes.Contains(b, []byte("webm")) {
			return FmtWebM
		}
		return FmtMKV
	// ASF header object GUID
	case bytes.HasPrefix(b, asfHeaderGUID):
		return FmtWMV
	case bytes.HasPrefix(b, []byte("FLV\x01")):
		return FmtFLV
	// MP4/MOV: ftyp box at offset 4
	case len(b) >= 8 && bytes.Equal(b[4:8], []byte("ftyp")):
		return detectMP4Subtype(b)
	case bytes.HasPrefix(b, []byte("%PDF")):
		return FmtPDF
	case bytes.HasPrefix(b, []byte(`{\rtf`)):
		return FmtRTF
	// EPUB stores an uncompressed "mimetype" entry first. Other ZIP-based
	// documents cannot be told apart from a plain archive without an
	// extension.
	case bytes.HasPrefix(b, []byte("PK\x03\x04")):
		if len(b) >= 58 && bytes.Equal(b[30:38], []byte("mimetype")) && bytes.HasPrefix(b[38:], []byte("application/epub+zip")) {
			return FmtEPUB
		}
		return FmtZIP
	}
	return FmtUnknown
}

var asfHeaderGUID = []byte{
	0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11,
	0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C,
}

func detectMP4Subtype(b []byte) FormatID {
	if len(b) < 12 {
		return FmtMP4
	}
	switch string(b[8:12]) {
	case "M4A ", "M4B ":
		return FmtM4A
	case "qt  ":
		return FmtMOV
	case "heic", "heix", "heim", "heis", "hevc", "mif1", "msf1":
		return FmtHEIC
	default:
		return FmtMP4
	}
}

// MediaTypeFor returns the broad media category for a format.
func MediaTypeFor(id FormatID) string {
	switch id {
	case FmtJPEG, FmtPNG, FmtGIF, FmtWebP, FmtTIFF, FmtBMP, FmtSVG, FmtHEIC:
		return "image"
	case FmtMP3, FmtFLAC, FmtM4A, FmtWAV, FmtOGG, FmtOpus, FmtAIFF:
		return "audio"
	case FmtMP4, FmtMOV, FmtMKV, FmtWebM, FmtAVI, FmtWMV, FmtFLV:
		return "video"
	case FmtPDF, FmtDOCX, FmtXLSX, FmtPPTX, FmtODT, FmtRTF, FmtEPUB:
		return "document"
	case FmtZIP:
		return "archive"
	default:
		return "unknown"
	}
}
