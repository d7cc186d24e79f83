package extraction

import (
	"path/filepath"
	"strings"
)

// Kind is the declared file kind of an uploaded document.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindJPG  Kind = "jpg"
	KindJPEG Kind = "jpeg"
	KindPNG  Kind = "png"
	KindTIFF Kind = "tiff"
	KindTIF  Kind = "tif"
	KindBMP  Kind = "bmp"
	KindGIF  Kind = "gif"
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindXLS  Kind = "xls"
	KindTXT  Kind = "txt"
)

// Family groups kinds that share an extraction path.
type Family int

const (
	FamilyUnsupported Family = iota
	FamilyDocument
	FamilyImage
	FamilyDelimited
	FamilySpreadsheet
	FamilyText
)

var families = map[Kind]Family{
	KindPDF:  FamilyDocument,
	KindJPG:  FamilyImage,
	KindJPEG: FamilyImage,
	KindPNG:  FamilyImage,
	KindTIFF: FamilyImage,
	KindTIF:  FamilyImage,
	KindBMP:  FamilyImage,
	KindGIF:  FamilyImage,
	KindCSV:  FamilyDelimited,
	KindXLSX: FamilySpreadsheet,
	KindXLS:  FamilySpreadsheet,
	KindTXT:  FamilyText,
}

// ParseKind lowercases s and drops a leading dot.
func ParseKind(s string) Kind {
	return Kind(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
}

// KindFromFilename derives the kind from a file extension.
func KindFromFilename(name string) Kind {
	return ParseKind(filepath.Ext(name))
}

func (k Kind) Family() Family {
	return families[k]
}

func (k Kind) Supported() bool {
	return k.Family() != FamilyUnsupported
}

// Tabular reports whether rows can be selected in documents of this kind.
func (k Kind) Tabular() bool {
	f := k.Family()
	return f == FamilyDelimited || f == FamilySpreadsheet
}
