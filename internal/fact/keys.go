package fact

// Fact keys. The order of Catalog is the declaration order of the generated
// artifact.
const (
	ProjectName     = "PROJECT_NAME"
	PackageName     = "PACKAGE_NAME"
	PkgVersion      = "PKG_VERSION"
	PkgVersionMajor = "PKG_VERSION_MAJOR"
	PkgVersionMinor = "PKG_VERSION_MINOR"
	PkgVersionPatch = "PKG_VERSION_PATCH"
	PkgVersionPre   = "PKG_VERSION_PRE"
	PkgDescription  = "PKG_DESCRIPTION"
	ModulePath      = "MODULE_PATH"
	ModuleGoVersion = "MODULE_GO_VERSION"
	ModuleDir       = "MODULE_DIR"
	BuildOS         = "BUILD_OS"
	BuildTarget     = "BUILD_TARGET"
	BuildTargetArch = "BUILD_TARGET_ARCH"
	CgoEnabled      = "CGO_ENABLED"
	GoVersion       = "GO_VERSION"
	ModuleTree      = "MODULE_TREE"

	Branch          = "BRANCH"
	Tag             = "TAG"
	LastTag         = "LAST_TAG"
	CommitsSinceTag = "COMMITS_SINCE_TAG"
	CommitHash      = "COMMIT_HASH"
	ShortCommit     = "SHORT_COMMIT"
	CommitAuthor    = "COMMIT_AUTHOR"
	CommitEmail     = "COMMIT_EMAIL"
	CommitDate      = "COMMIT_DATE"
	CommitDate2822  = "COMMIT_DATE_2822"
	CommitDate3339  = "COMMIT_DATE_3339"
	CommitTimestamp = "COMMIT_TIMESTAMP"
	GitClean        = "GIT_CLEAN"
	GitStatusFile   = "GIT_STATUS_FILE"

	BuildTime      = "BUILD_TIME"
	BuildTime2822  = "BUILD_TIME_2822"
	BuildTime3339  = "BUILD_TIME_3339"
	BuildTimestamp = "BUILD_TIMESTAMP"
	BuildID        = "BUILD_ID"
)

// Spec describes one catalog entry: the key, its fixed description and the
// zero value that fixes its variant.
type Spec struct {
	Key         string
	Description string
	Zero        Value
}

// Catalog lists every fact the resolver declares, in declaration order.
var Catalog = []Spec{
	{ProjectName, "Project name, from PROJECT_NAME or the last element of the module path.", Text("")},
	{PackageName, "Go package the facts were generated into.", Text("")},
	{PkgVersion, "Package version, from PKG_VERSION.", Text("")},
	{PkgVersionMajor, "Major component of the package version.", Text("")},
	{PkgVersionMinor, "Minor component of the package version.", Text("")},
	{PkgVersionPatch, "Patch component of the package version.", Text("")},
	{PkgVersionPre, "Pre-release component of the package version.", Text("")},
	{PkgDescription, "Package description, from PKG_DESCRIPTION.", Text("")},
	{ModulePath, "Module path declared in go.mod.", Text("")},
	{ModuleGoVersion, "Go language version declared in go.mod.", Text("")},
	{ModuleDir, "Module root directory at build time.", Text("")},
	{BuildOS, "Operating system and architecture of the build host.", Text("")},
	{BuildTarget, "Target GOOS/GOARCH the facts were generated for.", Text("")},
	{BuildTargetArch, "Target GOARCH.", Text("")},
	{CgoEnabled, "Whether cgo was enabled for the build.", Bool(false)},
	{GoVersion, "Output of `go version` on the build host.", Text("")},
	{ModuleTree, "Module dependency tree with private source locations redacted.", Text("")},

	{Branch, "Git branch the build was made from.", Text("")},
	{Tag, "Git tag pointing at HEAD, if any.", Text("")},
	{LastTag, "Nearest tag reachable from HEAD.", Text("")},
	{CommitsSinceTag, "Number of commits between LAST_TAG and HEAD.", Int(0)},
	{CommitHash, "Full hash of the HEAD commit.", Text("")},
	{ShortCommit, "First eight characters of COMMIT_HASH.", Text("")},
	{CommitAuthor, "Author name of the HEAD commit.", Text("")},
	{CommitEmail, "Author email of the HEAD commit.", Text("")},
	{CommitDate, "Commit date of HEAD, human readable.", Text("")},
	{CommitDate2822, "Commit date of HEAD, RFC 2822.", Text("")},
	{CommitDate3339, "Commit date of HEAD, RFC 3339.", Text("")},
	{CommitTimestamp, "Commit date of HEAD, seconds since the Unix epoch.", Int(0)},
	{GitClean, "Whether the working tree had no changes.", Bool(false)},
	{GitStatusFile, "Modified and staged files at build time.", Text("")},

	{BuildTime, "Build time, human readable.", Text("")},
	{BuildTime2822, "Build time, RFC 2822.", Text("")},
	{BuildTime3339, "Build time, RFC 3339.", Text("")},
	{BuildTimestamp, "Build time, seconds since the Unix epoch.", Int(0)},
	{BuildID, "Name-based UUID identifying module, commit and build time.", Bytes(nil)},
}

// DeclareCatalog declares every catalog entry on t with its zero value.
func DeclareCatalog(t *Table) {
	for _, s := range Catalog {
		t.Declare(s.Key, s.Description, s.Zero)
	}
}
