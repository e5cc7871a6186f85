package classify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     Category
	}{
		{"Program.cs", CSharp},
		{"test.vb", CSharp},
		{"project.csproj", CSharpProject},
		{"solution.sln", CSharpProject},
		{"query.sql", SQL},
		{"proc.tsql", SQL},
		{"page.aspx", WebDotnet},
		{"view.cshtml", WebDotnet},
		{"script.js", WebClient},
		{"UnitTest.cs", TestCSharp},
		{"TestQuery.sql", TestSQL},
		{"handler_test.go", TestCode},
		{"app.spec.ts", TestCode},
		{"web.config", DotnetConfig},
		{"appsettings.json", DotnetConfig},
		{"appsettings.Development.yaml", DotnetConfig},
		{"20240101_AddUsers_Migration.cs", DatabaseMigration},
		{"001_migration.sql", DatabaseMigration},
		{"openapi.json", APISpecs},
		{"settings.toml", Config},
		{"readme.md", Docs},
		{"deploy.ps1", Scripts},
		{"main.go", Golang},
		{"worker.py", Python},
		{"App.java", JVM},
		{"lib.rs", Native},
		{"unknown.xyz", Other},
		{"Makefile", Other},
		{"", Other},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.filename))
		})
	}
}

func TestClassify_DeterministicAndTotal(t *testing.T) {
	inputs := []string{
		"", ".", "..", "/", "a", ".cs", "A.CS", "x.min.js", "weird\x00name.cs",
		"日本語.go", "no_ext", "trailing.", "many.dots.in.name.sql",
	}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Classify(in), "classification of %q changed", in)
		}
		assert.NotEmpty(t, first)
	}
}

func TestClassifyArchitectureArea(t *testing.T) {
	tests := []struct {
		path     string
		filename string
		want     Area
	}{
		{"src/Controllers/UserController.cs", "UserController.cs", AreaControllers},
		{"src/api/routes.ts", "routes.ts", AreaControllers},
		{"src/Services/Billing.cs", "Billing.cs", AreaServices},
		{"src/Models/Order.cs", "Order.cs", AreaModels},
		{"src/Data/OrderRepository.cs", "OrderRepository.cs", AreaRepositories},
		{"src/Startup.cs", "Startup.cs", AreaInfrastructure},
		{"tests/OrderTests.cs", "OrderTests.cs", AreaTests},
		{"src/Core/Calc.cs", "Calc.cs", AreaApplication},
		{"db/tables.sql", "tables.sql", AreaDatabase},
		{"deploy/settings.toml", "settings.toml", AreaInfrastructure},
		{"assets/logo.png", "logo.png", AreaOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyArchitectureArea(tt.path, tt.filename))
		})
	}
}

func TestIsCritical(t *testing.T) {
	tests := []struct {
		filename string
		category Category
		want     bool
	}{
		{"Controller.cs", CSharp, true},
		{"UserService.cs", CSharp, true},
		{"DataManager.cs", CSharp, true},
		{"Helper.cs", CSharp, false},
		{"query.sql", SQL, false},
		{"readme.md", Docs, false},
		{"Dockerfile", Other, true},
		{"docker-compose.yml", APISpecs, true},
		{"Program.cs", CSharp, true},
		{"schema.graphql", Other, true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			path := fmt.Sprintf("/path/to/%s", tt.filename)
			assert.Equal(t, tt.want, IsCritical(path, tt.filename, tt.category))
		})
	}

	// business keyword in a non-code category is not critical
	assert.False(t, IsCritical("src/services/readme.md", "readme.md", Docs))
	assert.True(t, IsCritical("src/core/calc.go", "calc.go", Golang))
}

func TestShouldFetchContent(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/Program.cs", true},
		{"src/app.js", true},
		{"web/app.min.js", false},
		{"web/site.min.css", false},
		{"bin/tool.exe", false},
		{"img/logo.png", false},
		{"go.sum.lock", false},
		{"vendor/github.com/x/y.go", false},
		{"web/node_modules/react/index.js", false},
		{"Forms/Main.Designer.cs", false},
		{"db/Migrations/001_init.sql", false},
		{"api/generated/client.ts", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldFetchContent(tt.path))
		})
	}
}

func TestCategoryHelpers(t *testing.T) {
	assert.True(t, IsExcludedFromRisk(Other))
	assert.True(t, IsExcludedFromRisk(Docs))
	assert.False(t, IsExcludedFromRisk(CSharp))

	assert.True(t, IsCodeCategory(TestCode))
	assert.False(t, IsCodeCategory(SQL))
	assert.True(t, IsDatabaseCategory(DatabaseMigration))
	assert.False(t, IsDatabaseCategory(Config))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a.cs", BaseName("src/x/a.cs"))
	assert.Equal(t, "a.cs", BaseName("a.cs"))
	assert.Equal(t, "x", BaseName("src/x/"))
	assert.Equal(t, "", BaseName(""))
}
