package email

const subjectRunFailedFmt = "Workflow run failed: %s"
