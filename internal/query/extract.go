package query

import (
	"regexp"
	"strings"

	"github.com/coursecraft/coursecraft-go/internal/sliceutil"
)

// codePattern matches course codes with space, hyphen, or no separator
// between department and number: "COMP 250", "comp-250", "COMP250".
var codePattern = regexp.MustCompile(`(?i)\b([A-Za-z]{3,4})[\s\-]?(\d{3}[A-Za-z]?)\b`)

// deptFalsePositives lists common English words that look like department
// codes (3-4 letters) but aren't. Without this, "WHAT 200-level courses"
// would extract course code "WHAT 200".
var deptFalsePositives = map[string]bool{
	"WHAT": true, "THAT": true, "HAVE": true, "THIS": true, "WHEN": true,
	"THEN": true, "WITH": true, "FROM": true, "TAKE": true, "GIVE": true,
	"FIND": true, "LIST": true, "SHOW": true, "NEED": true, "WANT": true,
	"LIKE": true, "DOES": true, "EACH": true, "MANY": true, "MORE": true,
	"MUCH": true, "MOST": true, "NEXT": true, "SOME": true, "SUCH": true,
	"VERY": true, "WELL": true, "WILL": true, "THEY": true, "THEM": true,
	"YOUR": true, "YEAR": true, "ALSO": true, "INTO": true, "OVER": true,
	"LAST": true, "LONG": true, "LOOK": true, "MAKE": true, "JUST": true,
	"KNOW": true, "LESS": true, "MUST": true, "NONE": true, "ONLY": true,
	"PLAN": true, "REAL": true, "SAME": true, "TELL": true, "TEST": true,
	"TIME": true, "TRUE": true, "TURN": true, "TYPE": true, "WAIT": true,
	"WORK": true, "OPEN": true, "HOLD": true, "STAY": true, "STOP": true,
	"STEP": true, "BOTH": true, "EVEN": true, "WERE": true, "BEEN": true,
	"KEEP": true, "WENT": true, "BEST": true, "PICK": true, "SKIP": true,
	"HELP": true, "DONE": true,
}

// ExtractCourseIDs extracts every course code from the query in order of
// appearance, canonicalized to "DEPT NNN" with a single space and upper
// case, deduplicated, with false-positive department words filtered out.
func ExtractCourseIDs(query string) []string {
	matches := codePattern.FindAllStringSubmatch(query, -1)
	var ids []string
	for _, m := range matches {
		dept := strings.ToUpper(m[1])
		if deptFalsePositives[dept] {
			continue
		}
		ids = append(ids, dept+" "+strings.ToUpper(m[2]))
	}
	ids = sliceutil.Deduplicate(ids, func(id string) string { return id })
	return ids
}

// ExtractCourseID returns the first course code mentioned in the query,
// or "" when none is present.
func ExtractCourseID(query string) string {
	ids := ExtractCourseIDs(query)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// HasCourseCode reports whether the query mentions at least one real
// course code. Planning detection is skipped for such queries: "Should I
// take COMP 307 first year?" should fetch COMP 307, not return a generic
// entry-level list.
func HasCourseCode(query string) bool {
	return len(ExtractCourseIDs(query)) > 0
}
