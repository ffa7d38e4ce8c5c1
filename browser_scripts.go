package main

import "encoding/json"

// script to remove existing widget scripts and install a fresh one,
// resolves once the new script has executed
const loadScriptJS = `((origin, src) => new Promise((resolve, reject) => {
	// remove existing script
	document.querySelectorAll('script[src*="' + origin + '"]').forEach(s => s.remove());

	const script = document.createElement('script');
	script.type = 'text/javascript';
	script.async = true;
	script.src = src;
	script.onload = () => resolve(true);
	script.onerror = () => reject(new Error('Failed to load script ' + src));

	(document.getElementById('widgetScriptContainer') || document.body).appendChild(script);
}))(%s, %s)`

// script to check whether the widget global is callable
const sdkAvailableJS = `typeof window[%s] === 'function'`

// script to invoke the widget global, any exception the sdk throws is
// surfaced to the caller
const sdkCallJS = `((global, method, args) => {
	const sdk = window[global];
	if (typeof sdk !== 'function') {
		throw new Error(global + ' is not available');
	}

	sdk(method, ...args);
	return true;
})(%s, %s, %s)`

// script to count widget scripts currently installed
const scriptCountJS = `document.querySelectorAll('script[src*=' + JSON.stringify(%s) + ']').length`

// script to capture console errors and warnings, installed before the
// harness page loads
const consoleHookJS = `(() => {
	window.__console_errors = [];

	// capture resource and JS errors
	window.addEventListener('error', (e) => {
		if (e.target && (e.target.src || e.target.href)) {
			const message = (e.target.src || e.target.href) + " (type: " + e.target.tagName + ")";
			window.__console_errors.push("[Resource Load Failed]: " + message);
			return;
		}

		const message = e.message + " at " + e.filename + ":" + e.lineno + ":" + e.colno;
		window.__console_errors.push("[Uncaught JS Error]: " + message);
	}, true);

	// capture unhandled promise rejections
	window.addEventListener('unhandledrejection', (e) => {
		const message = e.reason ? e.reason.message : "Unknown";
		window.__console_errors.push("[Unhandled Promise Rejection]: " + message);
	});

	// override console.error to capture console errors
	const originalConsoleError = console.error;
	console.error = (...args) => {
		window.__console_errors.push("[Error]: " + args.map(String).join(' '));
		originalConsoleError.apply(console, args);
	};

	// override console.warn to capture console warnings
	const originalConsoleWarn = console.warn;
	console.warn = (...args) => {
		window.__console_errors.push("[Warning]: " + args.map(String).join(' '));
		originalConsoleWarn.apply(console, args);
	};
})();`

// script to drain the captured console messages
const drainConsoleJS = `(() => {
	const messages = window.__console_errors || [];
	window.__console_errors = [];
	return messages;
})()`

// harness page the widget is injected into, served on loopback
const harnessPageHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Widget Testing Platform</title>
</head>
<body>
	<h1>Widget Testing Platform</h1>
	<div id="widgetScriptContainer"></div>
</body>
</html>`

// jsArgs encodes values as JavaScript literals for the script templates
func jsArgs(values ...any) ([]any, error) {
	args := make([]any, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		args = append(args, string(b))
	}

	return args, nil
}
