package log

import "log/slog"

func BlueprintID[T ~string](id T) slog.Attr {
	return slog.String("blueprint_id", string(id))
}

func DeploymentID[T ~string](id T) slog.Attr {
	return slog.String("deployment_id", string(id))
}

func ExecutionID[T ~string](id T) slog.Attr {
	return slog.String("execution_id", string(id))
}

func WorkflowID[T ~string](id T) slog.Attr {
	return slog.String("workflow_id", string(id))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Path(p string) slog.Attr {
	return slog.String("path", p)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
