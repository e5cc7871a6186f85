// Package classify maps file paths to categories, architecture areas and
// criticality. All functions are pure and total.
package classify

import (
	"path"
	"strings"
)

// Category is the file type bucket a path falls into
type Category string

const (
	CSharp            Category = "csharp"
	CSharpProject     Category = "csharp_project"
	DotnetConfig      Category = "dotnet_config"
	SQL               Category = "sql"
	SQLServer         Category = "sql_server"
	Database          Category = "database"
	DatabaseMigration Category = "database_migration"
	WebDotnet         Category = "web_dotnet"
	WebClient         Category = "web_client"
	APISpecs          Category = "api_specs"
	Config            Category = "config"
	Docs              Category = "docs"
	Scripts           Category = "scripts"
	Golang            Category = "golang"
	Python            Category = "python"
	JVM               Category = "jvm"
	Native            Category = "native"
	TestCSharp        Category = "test_csharp"
	TestSQL           Category = "test_sql"
	TestCode          Category = "test_code"
	Other             Category = "other"
)

// Area is the architectural layer a file belongs to
type Area string

const (
	AreaControllers    Area = "controllers"
	AreaServices       Area = "services"
	AreaModels         Area = "models"
	AreaRepositories   Area = "repositories"
	AreaInfrastructure Area = "infrastructure"
	AreaTests          Area = "tests"
	AreaApplication    Area = "application"
	AreaDatabase       Area = "database"
	AreaOther          Area = "other"
)

type extensionGroup struct {
	category   Category
	extensions []string
}

// extensionTable is scanned in order; the first group containing the
// extension wins, so .json resolves to api_specs before config.
var extensionTable = []extensionGroup{
	{CSharp, []string{".cs", ".vb", ".fs"}},
	{CSharpProject, []string{".csproj", ".vbproj", ".fsproj", ".sln"}},
	{DotnetConfig, []string{".config", ".settings", ".resx", ".xaml"}},
	{SQL, []string{".sql", ".tsql"}},
	{SQLServer, []string{".dacpac", ".bacpac", ".sqlproj"}},
	{Database, []string{".mdf", ".ldf", ".bak"}},
	{WebDotnet, []string{".aspx", ".ascx", ".master", ".cshtml", ".vbhtml", ".razor"}},
	{WebClient, []string{".html", ".css", ".scss", ".sass", ".less", ".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs"}},
	{APISpecs, []string{".json", ".yaml", ".yml", ".xml", ".wsdl"}},
	{Config, []string{".json", ".yaml", ".yml", ".xml", ".toml", ".ini"}},
	{Docs, []string{".md", ".rst", ".txt", ".doc", ".docx"}},
	{Scripts, []string{".ps1", ".bat", ".cmd", ".sh"}},
	{Golang, []string{".go"}},
	{Python, []string{".py"}},
	{JVM, []string{".java", ".kt", ".scala"}},
	{Native, []string{".c", ".h", ".cpp", ".hpp", ".cc", ".cxx", ".rs"}},
}

var testIndicators = []string{"test", "tests", "spec", "specs", "unittest"}

// testCodeExtensions are the non-.NET code extensions that get test_code
var testCodeExtensions = map[string]bool{
	".go": true, ".py": true,
	".java": true, ".kt": true, ".scala": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cc": true, ".cxx": true, ".rs": true,
	".js": true, ".ts": true, ".jsx": true, ".tsx": true, ".mjs": true, ".cjs": true,
}

var appsettingsExtensions = map[string]bool{
	".json": true, ".config": true, ".xml": true, ".yaml": true, ".yml": true,
}

var migrationExtensions = map[string]bool{
	".cs": true, ".vb": true, ".fs": true, ".sql": true, ".tsql": true,
}

type areaGroup struct {
	area     Area
	keywords []string
}

var areaTable = []areaGroup{
	{AreaControllers, []string{"controller", "api", "endpoint"}},
	{AreaServices, []string{"service", "manager", "handler", "business"}},
	{AreaModels, []string{"model", "dto", "entity", "domain", "viewmodel"}},
	{AreaRepositories, []string{"repository", "dataaccess", "dal"}},
	{AreaInfrastructure, []string{"config", "startup", "program", "middleware"}},
	{AreaTests, []string{"test", "spec", "unittest", "integration"}},
}

var criticalIndicators = []string{
	"startup", "program.cs", "main.cs", "global.asax",
	"web.config", "app.config", "appsettings.json",
	"dockerfile", "docker-compose", ".csproj", ".sln",
	"migration", "seed", "schema",
}

var businessKeywords = []string{"service", "controller", "manager", "handler", "core", "business"}

// Ext returns the lower-cased extension of a file name, including the dot
func Ext(filename string) string {
	return strings.ToLower(path.Ext(filename))
}

// BaseName returns the last element of a slash separated path
func BaseName(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Classify returns the category of a file name. Unrecognized names map to Other.
func Classify(filename string) Category {
	if filename == "" {
		return Other
	}

	lower := strings.ToLower(filename)
	ext := Ext(lower)

	if containsAny(lower, testIndicators) {
		switch {
		case ext == ".cs":
			return TestCSharp
		case ext == ".sql":
			return TestSQL
		case testCodeExtensions[ext]:
			return TestCode
		}
	}

	if strings.Contains(lower, "appsettings") && appsettingsExtensions[ext] {
		return DotnetConfig
	}

	if strings.Contains(lower, "migration") && migrationExtensions[ext] {
		return DatabaseMigration
	}

	if ext == "" {
		return Other
	}
	for _, g := range extensionTable {
		for _, e := range g.extensions {
			if e == ext {
				return g.category
			}
		}
	}
	return Other
}

// ClassifyArchitectureArea scans path and filename against ordered keyword
// groups, falling back to a default derived from the file's category.
func ClassifyArchitectureArea(filePath, filename string) Area {
	p := strings.ToLower(filePath)
	f := strings.ToLower(filename)

	for _, g := range areaTable {
		for _, kw := range g.keywords {
			if strings.Contains(p, kw) || strings.Contains(f, kw) {
				return g.area
			}
		}
	}

	category := Classify(filename)
	switch {
	case IsCodeCategory(category):
		return AreaApplication
	case IsDatabaseCategory(category):
		return AreaDatabase
	case category == Config || category == DotnetConfig:
		return AreaInfrastructure
	}
	return AreaOther
}

// IsCritical reports whether a file is critical to the running system:
// startup/build/container/schema files, or business logic in code.
func IsCritical(filePath, filename string, category Category) bool {
	p := strings.ToLower(filePath)
	f := strings.ToLower(filename)

	for _, ind := range criticalIndicators {
		if strings.Contains(f, ind) || strings.Contains(p, ind) {
			return true
		}
	}

	if IsCodeCategory(category) || IsDatabaseCategory(category) {
		return containsAny(p, businessKeywords)
	}
	return false
}

// IsCodeCategory reports whether c holds program source
func IsCodeCategory(c Category) bool {
	switch c {
	case CSharp, WebDotnet, WebClient, Scripts, Golang, Python, JVM, Native,
		TestCSharp, TestCode:
		return true
	}
	return false
}

// IsDatabaseCategory reports whether c holds database artifacts
func IsDatabaseCategory(c Category) bool {
	switch c {
	case SQL, SQLServer, Database, DatabaseMigration, TestSQL:
		return true
	}
	return false
}

// IsExcludedFromRisk reports whether changes in c are ignored by the
// risk aggregator.
func IsExcludedFromRisk(c Category) bool {
	return c == Other || c == Docs
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
