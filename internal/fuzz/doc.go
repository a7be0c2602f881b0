// Package fuzztests houses Go fuzz harnesses for the log reading path
// (raw bytes -> source map index -> typed tree -> region normalization).
// Its goal is to catch panics, hangs and offset drift on arbitrary inputs.
//
// Назначение: прогонять произвольные байты через sourcemap.Parse и проверять,
// что каждая запись индекса указывает внутрь текста.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/sourcemap, internal/region, internal/sarif.
package fuzztests
