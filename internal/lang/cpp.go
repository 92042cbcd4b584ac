package lang

func init() {
	Register(&LanguageSpec{
		Language:         CPP,
		FileExtensions:   []string{".cpp", ".h", ".hpp", ".cc", ".cxx", ".hxx", ".hh"},
		HeaderExtensions: []string{".h", ".hpp", ".hxx", ".hh"},

		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes: []string{
			"class_specifier",
			"struct_specifier",
		},
		CallNodeTypes: []string{
			"call_expression",
			"new_expression",
		},
		ImportNodeTypes: []string{"preproc_include"},
		ImportFromTypes: []string{"preproc_include"},

		BranchingNodeTypes: []string{
			"if_statement",
			"switch_statement",
			"case_statement",
			"catch_clause",
			"conditional_expression",
		},
		AssignmentNodeTypes: []string{"init_declarator", "assignment_expression"},
	})
}
