package zeraki

// Column names used by the importer.
const (
	ColumnAdmNo        = "ADMNO"
	ColumnName         = "NAME"
	ColumnKCPE         = "KCPE"
	ColumnMeanMarks    = "MN MKS"
	ColumnMeanGrade    = "GR"
	OverallSubjectCode = "Overall"
)

// ExpectedHeaders is the header row of a class mark-sheet export.
var ExpectedHeaders = []string{
	"#", "ADMNO", "NAME", "STR", "KCPE",
	"ENG", "KIS", "MAT", "BIO", "PHY", "CHE", "HIS", "GEO", "CRE", "IRE", "BST", "SBJ", "VAP",
	"MN MKS", "GR", "TT MKS", "TT PTS", "MN PTS", "DEV", "STR POS", "OVR POS",
}

// SubjectColumns lists the per-subject grade columns in export order.
var SubjectColumns = []string{
	"ENG", "KIS", "MAT", "BIO", "PHY", "CHE", "HIS", "GEO", "CRE", "IRE", "BST", "SBJ", "VAP",
}
