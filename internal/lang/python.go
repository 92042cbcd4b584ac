package lang

func init() {
	Register(&LanguageSpec{
		Language:         Python,
		FileExtensions:   []string{".py"},
		HeaderExtensions: []string{".py"},

		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes:    []string{"class_definition"},
		CallNodeTypes:     []string{"call"},
		ImportNodeTypes:   []string{"import_statement"},
		ImportFromTypes:   []string{"import_from_statement"},

		BranchingNodeTypes: []string{
			"if_statement",
			"elif_clause",
			"conditional_expression",
			"except_clause",
			"list_comprehension",
			"set_comprehension",
			"dictionary_comprehension",
			"generator_expression",
			"boolean_operator",
		},
		AssignmentNodeTypes: []string{"assignment", "augmented_assignment"},
	})
}
