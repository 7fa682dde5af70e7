package config

const (
	unitIDPlaceholder = "{id}"

	defaultProjectDir       = "."
	defaultOutputDir        = "out"
	defaultCacheFile        = "out/.render-cache.json"
	defaultHistoryDB        = "out/.deckforge-history.db"
	defaultRenderBinary     = "npx"
	defaultRenderEntry      = "src/index.ts"
	defaultRenderScale      = 2
	defaultOutputPattern    = "v3-" + unitIDPlaceholder + ".png"
	defaultBundleCacheDir   = "node_modules/.cache"
	defaultPDFOutput        = "out/Poseidon_AI_MIT_CTO_V3_Visual_First.pdf"
	defaultTargetMBMin      = 10
	defaultTargetMBMax      = 13
	defaultJPEGQualityStart = 74
	defaultJPEGQualityMin   = 50
	defaultJPEGQualityMax   = 92
	defaultQualityStep      = 2
	defaultMaxAttempts      = 30
	defaultConverter        = "sips"
	defaultAssembler        = "img2pdf"
	defaultDebounceMillis   = 500
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	// MinMaxDimension is the smallest accepted pdf.max_dimension when resizing is enabled.
	MinMaxDimension = 640
	// QualityFloor and QualityCeiling bound every JPEG quality setting.
	QualityFloor   = 1
	QualityCeiling = 100
)

// DefaultUnits is the canonical V3 deck in presentation order.
func DefaultUnits() []Unit {
	return []Unit{
		{ID: "Slide01TitleV3", Source: "src/v2/Slide01TitleV2.tsx"},
		{ID: "Slide02ProblemV3", Source: "src/v2/Slide02ProblemV2.tsx"},
		{ID: "Slide03WhyNowV3", Source: "src/v2/Slide03WhyNowV2.tsx"},
		{ID: "Slide04SolutionV3", Source: "src/v2/Slide04SolutionV2.tsx"},
		{ID: "Slide05DifferentiationV3", Source: "src/v2/Slide05DifferentiationV2.tsx"},
		{ID: "Slide06BusinessV3", Source: "src/v2/Slide06BusinessV2.tsx"},
		{ID: "Slide07DemoV3", Source: "src/v2/Slide07DemoV2.tsx"},
		{ID: "Slide08SummaryV3", Source: "src/v2/Slide08SummaryV2.tsx"},
		{ID: "Slide09EpilogueV3", Source: "src/v2/Slide09EpilogueV2.tsx"},
		{ID: "Slide10AppendixV3", Source: "src/v2/Slide10AppendixV2.tsx"},
		{ID: "Slide11FinModelV3", Source: "src/v2/Slide11FinModelV2.tsx"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir: defaultProjectDir,
			OutputDir:  defaultOutputDir,
			CacheFile:  defaultCacheFile,
			HistoryDB:  defaultHistoryDB,
		},
		Render: Render{
			Binary:         defaultRenderBinary,
			Entry:          defaultRenderEntry,
			Scale:          defaultRenderScale,
			OutputPattern:  defaultOutputPattern,
			SharedDirs:     []string{"src/shared"},
			SharedFiles:    []string{"src/Root.tsx"},
			BundleCacheDir: defaultBundleCacheDir,
		},
		Units: DefaultUnits(),
		PDF: PDF{
			Output:           defaultPDFOutput,
			TargetMBMin:      defaultTargetMBMin,
			TargetMBMax:      defaultTargetMBMax,
			JPEGQualityStart: defaultJPEGQualityStart,
			JPEGQualityMin:   defaultJPEGQualityMin,
			JPEGQualityMax:   defaultJPEGQualityMax,
			QualityStep:      defaultQualityStep,
			MaxAttempts:      defaultMaxAttempts,
			Converter:        defaultConverter,
			Assembler:        defaultAssembler,
		},
		Watch: Watch{
			DebounceMillis: defaultDebounceMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
