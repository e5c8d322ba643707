package browser

// stealthScript runs before any page script and masks the automation flags
// that consent managers and bot checks commonly read.
const stealthScript = `
(() => {
    'use strict';

    Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

    if (!navigator.languages || navigator.languages.length === 0) {
        Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
    }

    if (!window.chrome) {
        window.chrome = { runtime: {} };
    }
})();
`
