package nl2sql

// DefaultVocabulary 返回学生成绩库的词表：students / subjects 两张表、院系代码、
// 科目与考试缩写、字段同义词以及典型示例。
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		Tables: []Table{
			{
				Name: "students",
				Columns: []Column{
					{Name: "id", Type: "TEXT", Note: "Primary Key"},
					{Name: "roll_no", Type: "TEXT", Note: "Student roll number"},
					{Name: "name", Type: "TEXT", Note: "Student full name, stored upper case"},
					{Name: "dept", Type: "TEXT", Note: "Department code"},
					{Name: "mailid", Type: "TEXT", Note: "Student email address"},
					{Name: "sem", Type: "TEXT", Note: "Current semester, e.g. 'S3'"},
					{Name: "year", Type: "INTEGER", Note: "Academic year"},
					{Name: "speciallab", Type: "TEXT", Note: "Special lab assignment"},
				},
			},
			{
				Name: "subjects",
				Columns: []Column{
					{Name: "id", Type: "INTEGER", Note: "Primary Key, auto increment"},
					{Name: "exam_name", Type: "TEXT", Note: "Type of examination"},
					{Name: "course_code", Type: "TEXT", Note: "Subject course code"},
					{Name: "student_id", Type: "TEXT", Note: "Foreign Key referencing students.id"},
					{Name: "subject_name", Type: "TEXT", Note: "Name of the subject"},
					{Name: "total_mark", Type: "INTEGER", Note: "Marks obtained"},
				},
			},
		},
		Departments: []Code{
			{Code: "CSE", Name: "Computer Science and Engineering", Aliases: []string{"computer science and engineering", "computer science"}},
			{Code: "ECE", Name: "Electronics and Communication Engineering", Aliases: []string{"electronics and communication engineering", "electronics and communication"}},
			{Code: "EIE", Name: "Electronics and Instrumentation Engineering", Aliases: []string{"electronics and instrumentation engineering", "electronics and instrumentation"}},
			{Code: "MECH", Name: "Mechanical Engineering", Aliases: []string{"mechanical engineering", "mechanical"}},
			{Code: "CIVIL", Name: "Civil Engineering", Aliases: []string{"civil engineering"}},
			{Code: "MRTS", Name: "Mechatronics Engineering", Aliases: []string{"mechatronics engineering", "mechatronics"}},
			{Code: "CSBS", Name: "Computer Science and Business Systems", Aliases: []string{"computer science and business systems"}},
			{Code: "IT", Name: "Information Technology", Aliases: []string{"information technology"}},
			{Code: "AGRI", Name: "Agricultural Engineering", Aliases: []string{"agricultural engineering", "agriculture"}},
			{Code: "ISE", Name: "Information Science and Engineering", Aliases: []string{"information science and engineering", "information science"}},
		},
		Aliases: []Alias{
			{Terms: []string{"DS-1", "DS1"}, Canonical: "Data Structures-1", Column: "subjects.subject_name"},
			{Terms: []string{"DS"}, Canonical: "Data Structures", Column: "subjects.subject_name"},
			{Terms: []string{"MATHS", "MATH"}, Canonical: "Mathematics", Column: "subjects.subject_name"},
			{Terms: []string{"OOPS", "OOP"}, Canonical: "Object Oriented Programming", Column: "subjects.subject_name"},
			{Terms: []string{"OS"}, Canonical: "Operating Systems", Column: "subjects.subject_name"},
			{Terms: []string{"CT1", "CT-1"}, Canonical: "Cycle Test-1", Column: "subjects.exam_name"},
			{Terms: []string{"PT1", "PT-1", "Periodic Test 1", "Test 1"}, Canonical: "Periodical Test-1", Column: "subjects.exam_name"},
		},
		FieldSynonyms: []Alias{
			{Terms: []string{"mark", "marks", "score", "scores"}, Canonical: "subjects.total_mark"},
			{Terms: []string{"test", "exam"}, Canonical: "subjects.exam_name"},
			{Terms: []string{"subject"}, Canonical: "subjects.subject_name"},
		},
		Rules: []string{
			"Always use single quotes for string literals.",
			"Use LIKE with % wildcards for partial name matches and upper-case the searched value.",
			"Use exact matches for roll numbers and department codes.",
			"Join subjects to students on subjects.student_id = students.id when both are needed.",
			"Provide meaningful column aliases for aggregates.",
			"Use DISTINCT when duplicates would be misleading.",
			"Generate exactly one SQL statement and nothing else.",
		},
		Examples: []Example{
			{Question: "Show all CSE students", SQL: "SELECT * FROM students WHERE dept = 'CSE';"},
			{Question: "Give me details of student Parthiban", SQL: "SELECT * FROM students WHERE name LIKE '%PARTHIBAN%';"},
			{Question: "List students in semester 3", SQL: "SELECT * FROM students WHERE sem = 'S3';"},
			{Question: "Show DS-1 mark for Parthiban in PT1", SQL: "SELECT s.total_mark FROM subjects s JOIN students st ON s.student_id = st.id WHERE st.name LIKE '%PARTHIBAN%' AND s.subject_name LIKE '%DATA STRUCTURES-1%' AND s.exam_name LIKE '%PERIODICAL TEST-1%';"},
			{Question: "Get physics marks of Parthiban", SQL: "SELECT s.total_mark FROM subjects s JOIN students st ON s.student_id = st.id WHERE st.name LIKE '%PARTHIBAN%' AND s.subject_name LIKE '%PHYSICS%';"},
			{Question: "Count total students in CSE", SQL: "SELECT COUNT(*) AS total_students FROM students WHERE dept = 'CSE';"},
			{Question: "Top 5 students by total marks", SQL: "SELECT st.name, st.roll_no, SUM(s.total_mark) AS total_marks FROM subjects s JOIN students st ON s.student_id = st.id GROUP BY st.id, st.name, st.roll_no ORDER BY total_marks DESC LIMIT 5;"},
			{Question: "Update Parthiban's department to IT", SQL: "UPDATE students SET dept = 'IT' WHERE name LIKE '%PARTHIBAN%';"},
			{Question: "Delete student with roll number 7376231CS230", SQL: "DELETE FROM students WHERE roll_no = '7376231CS230';"},
			{Question: "Add GPA column to students table", SQL: "ALTER TABLE students ADD COLUMN gpa REAL;"},
		},
	}
	return v.MustCompile()
}
