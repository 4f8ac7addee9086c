// Package plan defines the records produced by a spreadsheet import and
// the helpers used to validate, persist, and update them.
//
// A plan file (JSON) looks like:
//
//	{
//	  "title": "Imported Plan",
//	  "description": "Plan imported from Excel file",
//	  "startDate": "2024-01-01T00:00:00Z",
//	  "endDate": "2024-01-03T00:00:00Z",
//	  "tasks": [
//	    {
//	      "title": "Paint fence",
//	      "description": "",
//	      "date": "2024-01-02T00:00:00Z",
//	      "status": "Not Started",
//	      "priority": "High",
//	      "completed": false,
//	      "subtasks": [{"title": "Buy paint", "completed": false}],
//	      "tags": ["imported"],
//	      "estimatedTime": 60
//	    }
//	  ],
//	  "totalTasks": 1,
//	  "completedTasks": 0,
//	  "progress": 0
//	}
//
// # Validation
//
// Validate checks a plan against the embedded JSON Schema (or a schema file
// supplied by path) and then runs consistency checks the schema cannot
// express: totals match the task list, progress matches the totals, every
// task's completed flag matches its status, and task dates fall inside the
// plan's date range.
//
// # Status Values
//
//   - "Not Started"
//   - "In Progress"
//   - "Completed"
//
// Any other status text is kept as-is; only "Completed" marks a task done.
package plan
