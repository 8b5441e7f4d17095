package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	// Session lifecycle tools
	ConvertUploadFileDescription = `Register a PDF document for conversion into a tabular dataset.

**When to use:** First step of every conversion. The file is validated, copied into managed storage and a new session is created for it.

**Why it's useful:** Catches corrupt, empty or oversized files before any processing time is spent, and gives you a session id that every other tool operates on.

**Examples:**
• Start converting a bank statement: "Upload statement-2024-06.pdf and give me the session id"
• Queue several reports: "Upload each quarterly report, then start them one by one"

**Common workflows:**
1. Convert: upload → start → poll progress → save result
2. Inspect first: upload → start → status → reset preview if the cached rows are stale

**Best practices:** Keep the returned session id; it is the handle for start, pause, resume, cancel, status and download.`

	ConvertStartDescription = `Start converting an uploaded document into CSV or XLSX.

**When to use:** After upload, when you have decided on the output format.

**Why it's useful:** Kicks off analysis and page processing in the background; the document is sampled for tables, right-to-left text and scanned images, and the best extraction strategy is chosen automatically.

**Examples:**
• Spreadsheet output: "Start session 3f2a... with output format xlsx"
• Plain CSV: "Start the session with format csv"

**Common workflows:**
1. upload → start → poll convert_progress until completed
2. upload → start → pause when the machine is busy → resume later

**Best practices:** Accepted formats are csv, xlsx and spreadsheet (an alias for xlsx). A session can only be started once; cancel it first to start over.`

	ConvertPauseDescription = `Pause a running conversion at the next page boundary.

**When to use:** The conversion is long and you need to free resources, or you want to hold processing while deciding whether to continue.

**Why it's useful:** Progress is checkpointed per page, so a paused session loses no work and never reprocesses pages on resume.

**Examples:**
• "Pause session 3f2a... while I upload a more urgent file"

**Best practices:** Only a session in the processing state can be paused; pausing finishes the page currently being read before stopping.`

	ConvertResumeDescription = `Resume a paused conversion from its last checkpoint.

**When to use:** A previously paused session should continue.

**Why it's useful:** Work continues from the exact page where it stopped; already processed pages are never read again.

**Examples:**
• "Resume session 3f2a... now that the batch job finished"

**Best practices:** Only paused sessions can be resumed. Check convert_status if unsure of the current state.`

	ConvertCancelDescription = `Cancel a session and discard its output.

**When to use:** The conversion is no longer wanted, picked the wrong file, or you want to restart with a different output format.

**Why it's useful:** Stops the background worker, removes any partial or completed artifact and returns the session to the pending state so it can be started again.

**Examples:**
• "Cancel session 3f2a..., I uploaded the wrong statement"
• "Cancel and restart the session with xlsx instead of csv"

**Best practices:** Cancelling keeps the uploaded file and the document analysis, so restarting is cheap.`

	// Inspection tools
	ConvertStatusDescription = `Get the full state of a conversion session.

**When to use:** Need everything known about a session: status, chosen strategy, detected document traits, result columns and preview rows.

**Why it's useful:** One call answers "what happened to this session", including the error message when a conversion failed.

**Examples:**
• "Show me the status of session 3f2a..."
• Debugging: "Why did the session fail? Check its status"

**Best practices:** For cheap polling during conversion prefer convert_progress; use status for the complete picture.`

	ConvertProgressDescription = `Poll conversion progress as a percentage with page counters.

**When to use:** Watching a running conversion.

**Why it's useful:** Lightweight view built for polling loops: status, percent complete, current and total pages, plus the result preview once the session completes.

**Examples:**
• "Poll session 3f2a... every few seconds until it is completed or errored"

**Best practices:** Stop polling on the completed, error or pending (after cancel) states.`

	ConvertListSessionsDescription = `List all conversion sessions known to the service.

**When to use:** Recovering session ids, auditing what has been converted, or finding stale sessions to cancel.

**Why it's useful:** Sessions survive restarts; the list shows every session with its file, status and progress.

**Examples:**
• "List sessions and resume any that are paused"
• "Which uploads never got started?"`

	ConvertSaveResultDescription = `Save the finished CSV or XLSX artifact to a local directory.

**When to use:** A session reached the completed state and you want the output file on disk.

**Why it's useful:** Writes the artifact under its natural name (the uploaded file's basename with the output extension) into a directory you choose.

**Examples:**
• "Save the result of session 3f2a... into /home/user/exports"

**Best practices:** Only completed sessions have an artifact; check convert_progress first. The written file name is reported back.`
)
